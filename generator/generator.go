// Package generator converts change lists into executable PostgreSQL
// statements. Statement order follows the change list exactly.
package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wangvm/pgdelta/diff"
	"github.com/wangvm/pgdelta/schema"
)

// ToSQL maps each change to its SQL statements, flattened in order.
// column.update produces a statement only for nullability transitions;
// other column updates are carried in the diff but emit nothing.
func ToSQL(changes []diff.Change) []string {
	var statements []string
	for _, change := range changes {
		statements = append(statements, changeSQL(change)...)
	}
	return statements
}

func changeSQL(change diff.Change) []string {
	switch change.Type {
	case diff.TableCreate:
		defs := make([]string, 0, len(change.Columns))
		for _, col := range change.Columns {
			defs = append(defs, columnDefinition(col))
		}
		return []string{fmt.Sprintf(`CREATE TABLE %s (%s);`,
			quote(change.TableName), strings.Join(defs, ", "))}

	case diff.TableDelete:
		return []string{fmt.Sprintf(`DROP TABLE %s;`, quote(change.TableName))}

	case diff.ColumnCreate:
		return []string{fmt.Sprintf(`ALTER TABLE %s ADD %s;`,
			quote(change.Column.TableName), columnDefinition(*change.Column))}

	case diff.ColumnUpdate:
		return columnUpdateSQL(*change.Source, *change.Target)

	case diff.ColumnDelete:
		return []string{fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s;`,
			quote(change.TableName), quote(change.ColumnName))}

	case diff.ConstraintCreate:
		return []string{constraintSQL(*change.Constraint)}

	case diff.ConstraintDelete:
		return []string{fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT %s;`,
			quote(change.TableName), quote(change.ConstraintName))}

	case diff.IndexCreate:
		return []string{indexSQL(*change.Index)}

	case diff.IndexDelete:
		return []string{fmt.Sprintf(`DROP INDEX %s;`, quote(change.IndexName))}
	}
	return nil
}

// columnUpdateSQL emits only nullability transitions. The change travels
// from the target (observed) state to the source (desired) state.
func columnUpdateSQL(source, target schema.Column) []string {
	if source.Nullable == target.Nullable {
		return nil
	}
	if target.Nullable {
		return []string{fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;`,
			quote(source.TableName), quote(source.Name))}
	}
	return []string{fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;`,
		quote(source.TableName), quote(source.Name))}
}

func constraintSQL(c schema.Constraint) string {
	switch c.Type {
	case schema.PrimaryKeyConstraint:
		return fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s);`,
			quote(c.TableName), quote(c.Name), quoteJoinSorted(c.ColumnNames))

	case schema.ForeignKeyConstraint:
		cols, refCols := sortForeignKeyPairs(c.ColumnNames, c.ReferenceColumnNames)
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)`,
			quote(c.TableName), quote(c.Name),
			quoteJoin(cols),
			quote(c.ReferenceTableName),
			quoteJoin(refCols))
		if c.OnDelete != "" {
			stmt += fmt.Sprintf(` ON DELETE %s`, c.OnDelete)
		}
		if c.OnUpdate != "" {
			stmt += fmt.Sprintf(` ON UPDATE %s`, c.OnUpdate)
		}
		return stmt + ";"

	case schema.UniqueConstraint:
		return fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s);`,
			quote(c.TableName), quote(c.Name), quoteJoinSorted(c.ColumnNames))

	case schema.CheckConstraint:
		return fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);`,
			quote(c.TableName), quote(c.Name), c.Expression)
	}
	return ""
}

// indexSQL carries no terminating semicolon, unlike every other statement.
func indexSQL(idx schema.Index) string {
	stmt := "CREATE"
	if idx.Unique {
		stmt += " UNIQUE"
	}
	stmt += fmt.Sprintf(` INDEX %s ON %s`, quote(idx.Name), quote(idx.TableName))
	if len(idx.ColumnNames) > 0 {
		stmt += fmt.Sprintf(` (%s)`, quoteJoinSorted(idx.ColumnNames))
	}
	if idx.Using != "" {
		stmt += fmt.Sprintf(` USING %s`, idx.Using)
	}
	if idx.Expression != "" {
		stmt += fmt.Sprintf(` (%s)`, idx.Expression)
	}
	if idx.Where != "" {
		stmt += fmt.Sprintf(` WHERE %s`, idx.Where)
	}
	return stmt
}

// columnDefinition renders `"name" type [NOT NULL] [DEFAULT expr]`. Array
// columns carry the [] suffix on their element type.
func columnDefinition(col schema.Column) string {
	colType := col.Type
	if col.IsArray {
		colType += "[]"
	}
	def := fmt.Sprintf(`%s %s`, quote(col.Name), colType)
	if !col.Nullable {
		def += " NOT NULL"
	}
	if col.Default != nil {
		def += fmt.Sprintf(` DEFAULT %s`, *col.Default)
	}
	return def
}

func quote(identifier string) string {
	return `"` + identifier + `"`
}

// quoteJoinSorted renders a column list sorted lexicographically, quoted,
// comma-joined.
func quoteJoinSorted(columns []string) string {
	sorted := append([]string(nil), columns...)
	sort.Strings(sorted)
	return quoteJoin(sorted)
}

func quoteJoin(columns []string) string {
	quoted := make([]string, 0, len(columns))
	for _, c := range columns {
		quoted = append(quoted, quote(c))
	}
	return strings.Join(quoted, ", ")
}

// sortForeignKeyPairs sorts the referencing columns lexicographically while
// keeping each referenced column attached to its referencing column, so the
// positional child-to-parent correspondence survives the sort.
func sortForeignKeyPairs(columns, refColumns []string) ([]string, []string) {
	if len(columns) != len(refColumns) {
		return columns, refColumns
	}
	order := make([]int, len(columns))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return columns[order[a]] < columns[order[b]]
	})
	sortedCols := make([]string, len(columns))
	sortedRefs := make([]string, len(refColumns))
	for i, idx := range order {
		sortedCols[i] = columns[idx]
		sortedRefs[i] = refColumns[idx]
	}
	return sortedCols, sortedRefs
}
