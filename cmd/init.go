package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const starterSchema = `# pgdelta schema declarations.
# Each table compiles into the dynamic schema that is diffed against the
# database. Run "pgdelta diff" after editing.
tables:
  - entity: UserEntity
    name: users
    columns:
      - name: id
        type: uuid
        primary: true
        default: uuid_generate_v4()
      - name: email
        unique: true
      - name: createdAt
        type: timestamp with time zone
        default: now()
  - entity: AssetEntity
    name: assets
    columns:
      - name: id
        type: uuid
        primary: true
        default: uuid_generate_v4()
      - name: originalPath
        type: text
    relations:
      - property: owner
        target: UserEntity
        onDelete: CASCADE
        onUpdate: CASCADE
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter schema.yaml",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(diffSchemaFile); err == nil {
			fmt.Println("⚠️ ", diffSchemaFile, "already exists, leaving it alone")
			return
		}
		if err := os.WriteFile(diffSchemaFile, []byte(starterSchema), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "❌ Writing schema file:", err)
			os.Exit(1)
		}
		fmt.Println("✅ Created", diffSchemaFile)
	},
}
