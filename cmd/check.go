package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wangvm/pgdelta/database"
)

var (
	checkTimeout   time.Duration
	checkNamespace string
)

func init() {
	checkCmd.Flags().DurationVarP(&checkTimeout, "timeout", "t", 10*time.Second, "Timeout for the check")
	checkCmd.Flags().StringVarP(&checkNamespace, "namespace", "n", "public", "Database schema namespace to check")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check database connectivity and namespace",
	Long: `Verify that the database is reachable and the target namespace exists.

Examples:
  pgdelta check
  pgdelta check --timeout 5s -n media
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := checkDatabase(cmd.Context()); err != nil {
			fmt.Fprintln(os.Stderr, "❌", err)
			os.Exit(1)
		}
		fmt.Println("✅ Database check completed successfully")
	},
}

func checkDatabase(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, checkTimeout)
	defer cancel()

	pool, err := database.GetPool(ctx)
	if err != nil {
		return err
	}
	defer database.ClosePool()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM pg_namespace WHERE nspname = $1)`
	if err := pool.QueryRow(ctx, query, checkNamespace).Scan(&exists); err != nil {
		return fmt.Errorf("checking namespace: %w", err)
	}
	if !exists {
		return fmt.Errorf("namespace %q does not exist", checkNamespace)
	}

	var tableCount int
	countQuery := `
	SELECT COUNT(*) FROM information_schema.tables
	WHERE table_schema = $1 AND table_type = 'BASE TABLE'`
	if err := pool.QueryRow(ctx, countQuery, checkNamespace).Scan(&tableCount); err != nil {
		return fmt.Errorf("counting tables: %w", err)
	}
	fmt.Printf("📊 Namespace %q has %d tables\n", checkNamespace, tableCount)

	return nil
}
