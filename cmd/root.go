package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wangvm/pgdelta/utils"
)

var rootCmd = &cobra.Command{
	Use:   "pgdelta",
	Short: "Declarative schema differ and migration-SQL generator for PostgreSQL",
	Long: `pgdelta compares a declared schema against a live PostgreSQL database
and generates the UP migration SQL that brings the database in line.

Examples:

  pgdelta diff
  pgdelta diff --schema schema.yaml --out migrations
  pgdelta check
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.LoadEnv()
		viper.SetConfigName("pgdelta")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		// A config file is optional; DB_URL alone is enough.
		_ = viper.ReadInConfig()
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
}
