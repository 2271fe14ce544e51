package schema

// Schema describes one Postgres namespace: its tables, their columns,
// indexes, and constraints. Values are built once by the introspector or the
// metadata compiler and never mutated afterwards.
type Schema struct {
	Name   string  `json:"name"`
	Tables []Table `json:"tables"`
}

// Table looks up a table by name.
func (s Schema) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// HasTable reports whether a table with the given name exists.
func (s Schema) HasTable(name string) bool {
	_, ok := s.Table(name)
	return ok
}

// TableNames returns table names in declaration order.
func (s Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Restrict returns a copy of the schema containing only the named tables,
// preserving order.
func (s Schema) Restrict(names []string) Schema {
	keep := map[string]bool{}
	for _, n := range names {
		keep[n] = true
	}
	out := Schema{Name: s.Name}
	for _, t := range s.Tables {
		if keep[t.Name] {
			out.Tables = append(out.Tables, t)
		}
	}
	return out
}

type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	Indexes     []Index      `json:"indexes,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// Column looks up a column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Index looks up an index by name.
func (t Table) Index(name string) (Index, bool) {
	for _, i := range t.Indexes {
		if i.Name == name {
			return i, true
		}
	}
	return Index{}, false
}

// ConstraintsOfType returns the table's constraints of one type, in order.
func (t Table) ConstraintsOfType(typ ConstraintType) []Constraint {
	var out []Constraint
	for _, c := range t.Constraints {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

// PrimaryKeyColumns returns the column names of the table's primary key
// constraint, or nil when the table has none.
func (t Table) PrimaryKeyColumns() []string {
	for _, c := range t.Constraints {
		if c.Type == PrimaryKeyConstraint {
			return c.ColumnNames
		}
	}
	return nil
}

// Column is a single table column. For enum columns Type is "enum" and
// Values holds the labels in enum sort order. For array columns Type is the
// element type and IsArray is set.
type Column struct {
	TableName        string   `json:"tableName"`
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	Values           []string `json:"values,omitempty"`
	Nullable         bool     `json:"nullable"`
	IsArray          bool     `json:"isArray"`
	Primary          bool     `json:"primary"`
	Default          *string  `json:"default,omitempty"`
	NumericPrecision *int     `json:"numericPrecision,omitempty"`
	NumericScale     *int     `json:"numericScale,omitempty"`
}

// Index is a table index that is not backing a primary-key or unique
// constraint. Exactly one of ColumnNames and Expression is set.
type Index struct {
	Name        string   `json:"name"`
	TableName   string   `json:"tableName"`
	Unique      bool     `json:"unique"`
	ColumnNames []string `json:"columnNames,omitempty"`
	Expression  string   `json:"expression,omitempty"`
	Using       string   `json:"using,omitempty"`
	Where       string   `json:"where,omitempty"`
}

type ConstraintType string

const (
	PrimaryKeyConstraint ConstraintType = "PRIMARY_KEY"
	ForeignKeyConstraint ConstraintType = "FOREIGN_KEY"
	UniqueConstraint     ConstraintType = "UNIQUE"
	CheckConstraint      ConstraintType = "CHECK"
)

// ConstraintTypes lists the constraint variants in the order the diff engine
// partitions them.
var ConstraintTypes = []ConstraintType{
	PrimaryKeyConstraint,
	ForeignKeyConstraint,
	UniqueConstraint,
	CheckConstraint,
}

type ForeignKeyAction string

const (
	NoAction   ForeignKeyAction = "NO ACTION"
	Cascade    ForeignKeyAction = "CASCADE"
	Restrict   ForeignKeyAction = "RESTRICT"
	SetNull    ForeignKeyAction = "SET NULL"
	SetDefault ForeignKeyAction = "SET DEFAULT"
)

// Constraint is the tagged constraint variant. Which fields are meaningful
// depends on Type:
//
//	PRIMARY_KEY  Name, TableName, ColumnNames
//	FOREIGN_KEY  Name, TableName, ColumnNames, ReferenceTableName,
//	             ReferenceColumnNames, OnUpdate, OnDelete
//	UNIQUE       Name, TableName, ColumnNames
//	CHECK        Name, TableName, Expression
type Constraint struct {
	Type                 ConstraintType   `json:"type"`
	Name                 string           `json:"name"`
	TableName            string           `json:"tableName"`
	ColumnNames          []string         `json:"columnNames,omitempty"`
	ReferenceTableName   string           `json:"referenceTableName,omitempty"`
	ReferenceColumnNames []string         `json:"referenceColumnNames,omitempty"`
	OnUpdate             ForeignKeyAction `json:"onUpdate,omitempty"`
	OnDelete             ForeignKeyAction `json:"onDelete,omitempty"`
	Expression           string           `json:"expression,omitempty"`
}
