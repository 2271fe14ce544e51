// Package diff computes the ordered change list that transforms an observed
// schema into a desired one. Directionality is fixed: source is the desired
// state, target is the observed state.
package diff

import (
	"sort"

	"github.com/wangvm/pgdelta/schema"
)

type ChangeType string

const (
	TableCreate      ChangeType = "table.create"
	TableDelete      ChangeType = "table.delete"
	ColumnCreate     ChangeType = "column.create"
	ColumnUpdate     ChangeType = "column.update"
	ColumnDelete     ChangeType = "column.delete"
	ConstraintCreate ChangeType = "constraint.create"
	ConstraintDelete ChangeType = "constraint.delete"
	IndexCreate      ChangeType = "index.create"
	IndexDelete      ChangeType = "index.delete"
)

// Change is one structural operation. Which fields are set depends on Type.
type Change struct {
	Type           ChangeType         `json:"type"`
	TableName      string             `json:"tableName,omitempty"`
	Columns        []schema.Column    `json:"columns,omitempty"`
	Column         *schema.Column     `json:"column,omitempty"`
	Source         *schema.Column     `json:"source,omitempty"`
	Target         *schema.Column     `json:"target,omitempty"`
	ColumnName     string             `json:"columnName,omitempty"`
	Constraint     *schema.Constraint `json:"constraint,omitempty"`
	ConstraintName string             `json:"constraintName,omitempty"`
	Index          *schema.Index      `json:"index,omitempty"`
	IndexName      string             `json:"indexName,omitempty"`
}

type Options struct {
	// IgnoreExtraTables skips tables present only in the target. It
	// protects third-party tables sharing the namespace from being
	// dropped.
	IgnoreExtraTables bool
}

// DefaultOptions returns the options the driver uses.
func DefaultOptions() Options {
	return Options{IgnoreExtraTables: true}
}

// Diff returns the changes, in application order, that turn target into
// source.
func Diff(source, target schema.Schema, opts Options) []Change {
	var changes []Change

	for _, st := range source.Tables {
		tt, ok := target.Table(st.Name)
		if !ok {
			changes = append(changes, createTable(st)...)
			continue
		}
		changes = append(changes, diffColumns(st, tt)...)
		changes = append(changes, diffConstraints(st, tt)...)
		changes = append(changes, diffIndexes(st, tt)...)
	}

	if !opts.IgnoreExtraTables {
		for _, tt := range target.Tables {
			if !source.HasTable(tt.Name) {
				changes = append(changes, Change{Type: TableDelete, TableName: tt.Name})
			}
		}
	}

	return changes
}

// createTable emits the table itself, then its indexes, then its
// constraints. Constraints land as separate ALTER TABLE statements after the
// CREATE TABLE.
func createTable(t schema.Table) []Change {
	changes := []Change{{
		Type:      TableCreate,
		TableName: t.Name,
		Columns:   t.Columns,
	}}
	changes = append(changes, diffIndexes(t, schema.Table{Name: t.Name})...)
	changes = append(changes, diffConstraints(t, schema.Table{Name: t.Name})...)
	return changes
}

func diffColumns(source, target schema.Table) []Change {
	var changes []Change
	for _, key := range unionKeys(columnNames(source), columnNames(target)) {
		sc, inSource := source.Column(key)
		tc, inTarget := target.Column(key)
		switch {
		case inSource && !inTarget:
			col := sc
			changes = append(changes, Change{Type: ColumnCreate, Column: &col})
		case !inSource && inTarget:
			changes = append(changes, Change{
				Type:       ColumnDelete,
				TableName:  target.Name,
				ColumnName: tc.Name,
			})
		default:
			changes = append(changes, diffColumn(sc, tc)...)
		}
	}
	return changes
}

// diffColumn compares two same-named columns. A type change means
// drop-and-recreate; data migration across types is not attempted. Any other
// difference in the compared fields becomes a single column.update.
func diffColumn(source, target schema.Column) []Change {
	if source.Type != target.Type {
		src := source
		return []Change{
			{Type: ColumnDelete, TableName: target.TableName, ColumnName: target.Name},
			{Type: ColumnCreate, Column: &src},
		}
	}
	if source.Nullable != target.Nullable ||
		source.Primary != target.Primary ||
		source.IsArray != target.IsArray ||
		!equalDefaults(source.Default, target.Default) {
		src, tgt := source, target
		return []Change{{Type: ColumnUpdate, Source: &src, Target: &tgt}}
	}
	return nil
}

func diffConstraints(source, target schema.Table) []Change {
	var changes []Change
	for _, typ := range schema.ConstraintTypes {
		sc := source.ConstraintsOfType(typ)
		tc := target.ConstraintsOfType(typ)
		changes = append(changes, diffConstraintGroup(sc, tc)...)
	}
	return changes
}

func diffConstraintGroup(source, target []schema.Constraint) []Change {
	sByName := map[string]schema.Constraint{}
	for _, c := range source {
		sByName[c.Name] = c
	}
	tByName := map[string]schema.Constraint{}
	for _, c := range target {
		tByName[c.Name] = c
	}

	var changes []Change
	for _, key := range unionKeys(constraintNames(source), constraintNames(target)) {
		sc, inSource := sByName[key]
		tc, inTarget := tByName[key]
		switch {
		case inSource && !inTarget:
			c := sc
			changes = append(changes, Change{Type: ConstraintCreate, Constraint: &c})
		case !inSource && inTarget:
			changes = append(changes, Change{
				Type:           ConstraintDelete,
				TableName:      tc.TableName,
				ConstraintName: tc.Name,
			})
		default:
			if !equalConstraints(sc, tc) {
				c := sc
				changes = append(changes,
					Change{Type: ConstraintDelete, TableName: tc.TableName, ConstraintName: tc.Name},
					Change{Type: ConstraintCreate, Constraint: &c},
				)
			}
		}
	}
	return changes
}

// equalConstraints compares two same-named constraints structurally.
// Column-name lists compare as sets.
func equalConstraints(a, b schema.Constraint) bool {
	switch a.Type {
	case schema.PrimaryKeyConstraint:
		return a.TableName == b.TableName &&
			equalStringSets(a.ColumnNames, b.ColumnNames)
	case schema.ForeignKeyConstraint:
		return a.TableName == b.TableName &&
			a.ReferenceTableName == b.ReferenceTableName &&
			a.OnUpdate == b.OnUpdate &&
			a.OnDelete == b.OnDelete &&
			equalStringSets(a.ColumnNames, b.ColumnNames) &&
			equalStringSets(a.ReferenceColumnNames, b.ReferenceColumnNames)
	case schema.UniqueConstraint:
		return equalStringSets(a.ColumnNames, b.ColumnNames)
	case schema.CheckConstraint:
		return a.Expression == b.Expression
	}
	return false
}

func diffIndexes(source, target schema.Table) []Change {
	var changes []Change
	for _, key := range unionKeys(indexNames(source), indexNames(target)) {
		si, inSource := source.Index(key)
		ti, inTarget := target.Index(key)
		switch {
		case inSource && !inTarget:
			idx := si
			changes = append(changes, Change{Type: IndexCreate, Index: &idx})
		case !inSource && inTarget:
			changes = append(changes, Change{Type: IndexDelete, IndexName: ti.Name})
		default:
			if !equalIndexes(si, ti) {
				idx := si
				changes = append(changes,
					Change{Type: IndexDelete, IndexName: ti.Name},
					Change{Type: IndexCreate, Index: &idx},
				)
			}
		}
	}
	return changes
}

// equalIndexes intentionally does not compare Using: changing only the
// access method produces no diff.
func equalIndexes(a, b schema.Index) bool {
	return a.Unique == b.Unique &&
		a.Expression == b.Expression &&
		a.Where == b.Where &&
		equalStringSets(a.ColumnNames, b.ColumnNames)
}

func equalDefaults(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// unionKeys returns a's keys in order, then b-only keys in b's order.
func unionKeys(a, b []string) []string {
	seen := map[string]bool{}
	keys := make([]string, 0, len(a)+len(b))
	for _, k := range a {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range b {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func columnNames(t schema.Table) []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

func constraintNames(cs []schema.Constraint) []string {
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, c.Name)
	}
	return names
}

func indexNames(t schema.Table) []string {
	names := make([]string, 0, len(t.Indexes))
	for _, i := range t.Indexes {
		names = append(names, i.Name)
	}
	return names
}
