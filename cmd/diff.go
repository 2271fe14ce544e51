package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wangvm/pgdelta/database"
	"github.com/wangvm/pgdelta/diff"
	"github.com/wangvm/pgdelta/generator"
	"github.com/wangvm/pgdelta/introspect"
	"github.com/wangvm/pgdelta/loader"
	"github.com/wangvm/pgdelta/metadata"
	"github.com/wangvm/pgdelta/validator"
)

var (
	diffSchemaFile      string
	diffOutDir          string
	diffNamespace       string
	diffDropExtraTables bool
	diffSummary         bool
	diffDryRun          bool
)

func init() {
	diffCmd.Flags().StringVarP(&diffSchemaFile, "schema", "f", "schema.yaml", "Schema declaration file")
	diffCmd.Flags().StringVarP(&diffOutDir, "out", "o", ".", "Directory the artifacts are written into")
	diffCmd.Flags().StringVarP(&diffNamespace, "namespace", "n", "public", "Database schema namespace to introspect")
	diffCmd.Flags().BoolVar(&diffDropExtraTables, "drop-extra-tables", false, "Emit DROP TABLE for tables not declared in the schema")
	diffCmd.Flags().BoolVar(&diffSummary, "summary", false, "Print a colored change summary")
	diffCmd.Flags().BoolVar(&diffDryRun, "dry-run", false, "Print the SQL instead of writing artifact files")
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Diff declared schema against the database and generate migration SQL",
	Long: `Load the declared schema, introspect the database, and write the diff
artifacts: schema-dynamic.json, schema-database.json, schema-diff.json, and
schema-sql.sql.

Examples:
  pgdelta diff                         # schema.yaml against the database
  pgdelta diff -f app.yaml -o build    # custom file and output directory
  pgdelta diff --dry-run --summary     # preview without writing
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDiff(cmd.Context()); err != nil {
			fmt.Fprintln(os.Stderr, "❌", err)
			os.Exit(1)
		}
	},
}

func runDiff(ctx context.Context) error {
	if _, err := os.Stat(diffSchemaFile); err == nil {
		if err := loader.LoadFile(diffSchemaFile, metadata.DefaultRegistry); err != nil {
			return fmt.Errorf("loading %s: %w", diffSchemaFile, err)
		}
	}

	desired := metadata.GetDynamicSchema()
	if len(desired.Tables) == 0 {
		return fmt.Errorf("no tables declared: provide %s or register entities", diffSchemaFile)
	}
	if issues := validator.ValidateSchema(desired); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintln(os.Stderr, "⚠️ ", issue)
		}
		return fmt.Errorf("declared schema has %d issue(s)", len(issues))
	}

	pool, err := database.GetPool(ctx)
	if err != nil {
		return err
	}
	defer database.ClosePool()

	observed, err := introspect.LoadSchema(ctx, pool, diffNamespace)
	if err != nil {
		return err
	}

	opts := diff.DefaultOptions()
	opts.IgnoreExtraTables = !diffDropExtraTables
	changes := diff.Diff(desired, observed, opts)
	statements := generator.ToSQL(changes)

	if diffSummary {
		printSummary(changes)
	}

	if len(changes) == 0 {
		fmt.Println("✅ No changes detected.")
	}

	if diffDryRun {
		fmt.Print(generator.RenderSQL(statements))
		return nil
	}

	paths, err := generator.WriteArtifacts(diffOutDir, generator.Artifacts{
		Dynamic:    desired,
		Database:   observed.Restrict(desired.TableNames()),
		Changes:    changes,
		Statements: statements,
	})
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println("✅ Wrote", p)
	}
	return nil
}

func printSummary(changes []diff.Change) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	fmt.Println("📋 Schema Changes")
	for _, change := range changes {
		switch change.Type {
		case diff.TableCreate:
			green.Printf("  ➕ CREATE TABLE %s (%d columns)\n", change.TableName, len(change.Columns))
		case diff.TableDelete:
			red.Printf("  ❌ DROP TABLE %s\n", change.TableName)
		case diff.ColumnCreate:
			green.Printf("  ➕ ADD %s.%s (%s)\n", change.Column.TableName, change.Column.Name, change.Column.Type)
		case diff.ColumnUpdate:
			yellow.Printf("  ⚡ ALTER %s.%s\n", change.Source.TableName, change.Source.Name)
		case diff.ColumnDelete:
			red.Printf("  ❌ DROP %s.%s\n", change.TableName, change.ColumnName)
		case diff.ConstraintCreate:
			green.Printf("  ➕ ADD CONSTRAINT %s ON %s\n", change.Constraint.Name, change.Constraint.TableName)
		case diff.ConstraintDelete:
			red.Printf("  ❌ DROP CONSTRAINT %s ON %s\n", change.ConstraintName, change.TableName)
		case diff.IndexCreate:
			green.Printf("  ➕ CREATE INDEX %s ON %s\n", change.Index.Name, change.Index.TableName)
		case diff.IndexDelete:
			red.Printf("  ❌ DROP INDEX %s\n", change.IndexName)
		}
	}
}
