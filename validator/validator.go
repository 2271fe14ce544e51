// Package validator checks a schema value against the model invariants
// before it is diffed: name uniqueness, dangling references, well-formed
// enum and index declarations.
package validator

import (
	"fmt"

	"github.com/wangvm/pgdelta/schema"
)

// Issue is one invariant violation, located by table (and column where it
// applies).
type Issue struct {
	Table   string
	Column  string
	Message string
}

func (i Issue) String() string {
	if i.Column != "" {
		return fmt.Sprintf("%s.%s: %s", i.Table, i.Column, i.Message)
	}
	if i.Table != "" {
		return fmt.Sprintf("%s: %s", i.Table, i.Message)
	}
	return i.Message
}

// ValidateSchema returns every invariant violation found. An empty result
// means the schema is safe to diff.
func ValidateSchema(s schema.Schema) []Issue {
	var issues []Issue

	tableSeen := map[string]bool{}
	constraintSeen := map[string]string{}
	indexSeen := map[string]string{}

	for _, t := range s.Tables {
		if tableSeen[t.Name] {
			issues = append(issues, Issue{Table: t.Name, Message: "duplicate table name"})
			continue
		}
		tableSeen[t.Name] = true

		columnSeen := map[string]bool{}
		for _, c := range t.Columns {
			if columnSeen[c.Name] {
				issues = append(issues, Issue{Table: t.Name, Column: c.Name, Message: "duplicate column name"})
				continue
			}
			columnSeen[c.Name] = true

			if c.TableName != t.Name {
				issues = append(issues, Issue{
					Table:   t.Name,
					Column:  c.Name,
					Message: fmt.Sprintf("column claims table %q", c.TableName),
				})
			}
			if c.Type == "enum" && len(c.Values) == 0 {
				issues = append(issues, Issue{Table: t.Name, Column: c.Name, Message: "enum column has no values"})
			}
		}

		for _, idx := range t.Indexes {
			if owner, dup := indexSeen[idx.Name]; dup {
				issues = append(issues, Issue{
					Table:   t.Name,
					Message: fmt.Sprintf("index %q duplicates one on table %q", idx.Name, owner),
				})
				continue
			}
			indexSeen[idx.Name] = t.Name

			if idx.TableName != t.Name {
				issues = append(issues, Issue{
					Table:   t.Name,
					Message: fmt.Sprintf("index %q claims table %q", idx.Name, idx.TableName),
				})
			}
			hasColumns := len(idx.ColumnNames) > 0
			hasExpression := idx.Expression != ""
			if hasColumns == hasExpression {
				issues = append(issues, Issue{
					Table:   t.Name,
					Message: fmt.Sprintf("index %q needs exactly one of columns or expression", idx.Name),
				})
			}
			for _, col := range idx.ColumnNames {
				if !columnSeen[col] {
					issues = append(issues, Issue{
						Table:   t.Name,
						Message: fmt.Sprintf("index %q references unknown column %q", idx.Name, col),
					})
				}
			}
		}

		for _, c := range t.Constraints {
			if owner, dup := constraintSeen[c.Name]; dup {
				issues = append(issues, Issue{
					Table:   t.Name,
					Message: fmt.Sprintf("constraint %q duplicates one on table %q", c.Name, owner),
				})
				continue
			}
			constraintSeen[c.Name] = t.Name

			if c.TableName != t.Name {
				issues = append(issues, Issue{
					Table:   t.Name,
					Message: fmt.Sprintf("constraint %q claims table %q", c.Name, c.TableName),
				})
			}
			for _, col := range c.ColumnNames {
				if !columnSeen[col] {
					issues = append(issues, Issue{
						Table:   t.Name,
						Message: fmt.Sprintf("constraint %q references unknown column %q", c.Name, col),
					})
				}
			}
			if c.Type == schema.ForeignKeyConstraint {
				ref, ok := s.Table(c.ReferenceTableName)
				if !ok {
					issues = append(issues, Issue{
						Table:   t.Name,
						Message: fmt.Sprintf("constraint %q references unknown table %q", c.Name, c.ReferenceTableName),
					})
					continue
				}
				for _, col := range c.ReferenceColumnNames {
					if _, ok := ref.Column(col); !ok {
						issues = append(issues, Issue{
							Table:   t.Name,
							Message: fmt.Sprintf("constraint %q references unknown column %s.%s", c.Name, ref.Name, col),
						})
					}
				}
			}
		}
	}

	return issues
}
