// Package metadata compiles application-level entity declarations into the
// schema model. Declarations are registered against an entity name (the
// struct or class name) through five registration kinds: table, column,
// table-level index, field-level column index, and many-to-one relation.
package metadata

import (
	"strings"
	"sync"
	"unicode"

	"github.com/wangvm/pgdelta/logging"
	"github.com/wangvm/pgdelta/schema"
)

type TableOptions struct {
	// Name overrides the snake_cased entity name.
	Name string
}

type ColumnOptions struct {
	// Name overrides the field name. Unlike table names, column names are
	// used as-is, not snake_cased.
	Name             string
	Type             string
	Nullable         bool
	Primary          bool
	Unique           bool
	IsArray          bool
	Enum             []string
	Default          any
	NumericPrecision *int
	NumericScale     *int
}

type IndexOptions struct {
	Name       string
	Columns    []string
	Expression string
	Using      string
	Where      string
	Unique     bool
}

type ColumnIndexOptions struct {
	Name   string
	Unique bool
	Using  string
	Where  string
}

type RelationOptions struct {
	// Target is the entity name of the referenced table.
	Target   string
	OnUpdate schema.ForeignKeyAction
	OnDelete schema.ForeignKeyAction
}

type tableReg struct {
	entity string
	opts   TableOptions
}

type columnReg struct {
	entity string
	field  string
	opts   ColumnOptions
}

type indexReg struct {
	entity string
	opts   IndexOptions
}

type columnIndexReg struct {
	entity string
	field  string
	opts   ColumnIndexOptions
}

type relationReg struct {
	entity   string
	property string
	opts     RelationOptions
}

// Registry collects entity declarations and compiles them into a Schema.
// Compilation happens once; later registrations have no effect.
type Registry struct {
	mu        sync.Mutex
	tables    []tableReg
	columns   []columnReg
	indexes   []indexReg
	colIdx    []columnIndexReg
	relations []relationReg

	once     sync.Once
	compiled schema.Schema
}

func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry backs the package-level registration functions.
var DefaultRegistry = NewRegistry()

func RegisterTable(entity string, opts TableOptions) {
	DefaultRegistry.Table(entity, opts)
}

func RegisterColumn(entity, field string, opts ColumnOptions) {
	DefaultRegistry.Column(entity, field, opts)
}

func RegisterIndex(entity string, opts IndexOptions) {
	DefaultRegistry.Index(entity, opts)
}

func RegisterColumnIndex(entity, field string, opts ColumnIndexOptions) {
	DefaultRegistry.ColumnIndex(entity, field, opts)
}

func RegisterRelation(entity, property string, opts RelationOptions) {
	DefaultRegistry.Relation(entity, property, opts)
}

// GetDynamicSchema compiles the default registry. The first call
// initializes; subsequent calls return the cached result.
func GetDynamicSchema() schema.Schema {
	return DefaultRegistry.Compile()
}

func (r *Registry) Table(entity string, opts TableOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = append(r.tables, tableReg{entity: entity, opts: opts})
}

func (r *Registry) Column(entity, field string, opts ColumnOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.columns = append(r.columns, columnReg{entity: entity, field: field, opts: opts})
}

func (r *Registry) Index(entity string, opts IndexOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexes = append(r.indexes, indexReg{entity: entity, opts: opts})
}

func (r *Registry) ColumnIndex(entity, field string, opts ColumnIndexOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.colIdx = append(r.colIdx, columnIndexReg{entity: entity, field: field, opts: opts})
}

func (r *Registry) Relation(entity, property string, opts RelationOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.relations = append(r.relations, relationReg{entity: entity, property: property, opts: opts})
}

// Compile turns the registered declarations into a Schema. The result is
// computed once and cached; the registry must not be mutated afterwards.
func (r *Registry) Compile() schema.Schema {
	r.once.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.compiled = r.compile()
	})
	return r.compiled
}

type tableBuild struct {
	table schema.Table
}

func (r *Registry) compile() schema.Schema {
	// Pass 1: tables. Entity name -> table build for later lookup.
	builds := map[string]*tableBuild{}
	var order []string
	for _, reg := range r.tables {
		name := reg.opts.Name
		if name == "" {
			name = toSnakeCase(reg.entity)
		}
		builds[reg.entity] = &tableBuild{table: schema.Table{Name: name}}
		order = append(order, reg.entity)
	}

	// Pass 2: columns, plus synthetic UNIQUE constraints. Field -> column
	// name is remembered so field-level indexes resolve renamed columns.
	fieldColumns := map[string]map[string]string{}
	for _, reg := range r.columns {
		b, ok := builds[reg.entity]
		if !ok {
			logging.Warn().
				Str("entity", reg.entity).
				Str("field", reg.field).
				Msg("column registered on unknown table, dropping")
			continue
		}
		col := buildColumn(b.table.Name, reg.field, reg.opts)
		if fieldColumns[reg.entity] == nil {
			fieldColumns[reg.entity] = map[string]string{}
		}
		fieldColumns[reg.entity][reg.field] = col.Name
		b.table.Columns = append(b.table.Columns, col)

		if reg.opts.Unique && !reg.opts.Primary {
			cols := []string{col.Name}
			b.table.Constraints = append(b.table.Constraints, schema.Constraint{
				Type:        schema.UniqueConstraint,
				Name:        schema.UniqueName(b.table.Name, cols),
				TableName:   b.table.Name,
				ColumnNames: cols,
			})
		}
	}

	// Pass 3: primary keys.
	for _, entity := range order {
		b := builds[entity]
		var pkCols []string
		for _, c := range b.table.Columns {
			if c.Primary {
				pkCols = append(pkCols, c.Name)
			}
		}
		if len(pkCols) > 0 {
			b.table.Constraints = append(b.table.Constraints, schema.Constraint{
				Type:        schema.PrimaryKeyConstraint,
				Name:        schema.PrimaryKeyName(b.table.Name, pkCols),
				TableName:   b.table.Name,
				ColumnNames: pkCols,
			})
		}
	}

	// Pass 4: indexes, table-level then field-level.
	for _, reg := range r.indexes {
		b, ok := builds[reg.entity]
		if !ok {
			logging.Warn().Str("entity", reg.entity).Msg("index registered on unknown table, dropping")
			continue
		}
		name := reg.opts.Name
		if name == "" {
			name = schema.IndexName(b.table.Name, reg.opts.Columns)
		}
		b.table.Indexes = append(b.table.Indexes, schema.Index{
			Name:        name,
			TableName:   b.table.Name,
			Unique:      reg.opts.Unique,
			ColumnNames: reg.opts.Columns,
			Expression:  reg.opts.Expression,
			Using:       reg.opts.Using,
			Where:       reg.opts.Where,
		})
	}
	for _, reg := range r.colIdx {
		b, ok := builds[reg.entity]
		if !ok {
			logging.Warn().Str("entity", reg.entity).Msg("column index registered on unknown table, dropping")
			continue
		}
		colName := reg.field
		if resolved, ok := fieldColumns[reg.entity][reg.field]; ok {
			colName = resolved
		}
		cols := []string{colName}
		name := reg.opts.Name
		if name == "" {
			name = schema.IndexName(b.table.Name, cols)
		}
		b.table.Indexes = append(b.table.Indexes, schema.Index{
			Name:        name,
			TableName:   b.table.Name,
			Unique:      reg.opts.Unique,
			ColumnNames: cols,
			Using:       reg.opts.Using,
			Where:       reg.opts.Where,
		})
	}

	// Pass 5: many-to-one relations. Each adds a {property}Id uuid column
	// (unless declared already) and a FOREIGN KEY to the target's primary
	// key columns.
	for _, reg := range r.relations {
		b, ok := builds[reg.entity]
		if !ok {
			logging.Warn().
				Str("entity", reg.entity).
				Str("property", reg.property).
				Msg("relation registered on unknown table, dropping")
			continue
		}
		target, ok := builds[reg.opts.Target]
		if !ok {
			logging.Warn().
				Str("entity", reg.entity).
				Str("target", reg.opts.Target).
				Msg("relation references unregistered table, dropping")
			continue
		}
		refCols := target.table.PrimaryKeyColumns()
		if len(refCols) == 0 {
			logging.Warn().
				Str("entity", reg.entity).
				Str("target", reg.opts.Target).
				Msg("relation target has no primary key, dropping")
			continue
		}

		colName := reg.property + "Id"
		if _, exists := b.table.Column(colName); !exists {
			b.table.Columns = append(b.table.Columns, schema.Column{
				TableName: b.table.Name,
				Name:      colName,
				Type:      "uuid",
				Nullable:  true,
			})
		}

		// Actions default to NO ACTION so the compiled constraint matches
		// what introspection reports and the diff converges.
		onUpdate := reg.opts.OnUpdate
		if onUpdate == "" {
			onUpdate = schema.NoAction
		}
		onDelete := reg.opts.OnDelete
		if onDelete == "" {
			onDelete = schema.NoAction
		}

		cols := []string{colName}
		b.table.Constraints = append(b.table.Constraints, schema.Constraint{
			Type:                 schema.ForeignKeyConstraint,
			Name:                 schema.ForeignKeyName(b.table.Name, cols),
			TableName:            b.table.Name,
			ColumnNames:          cols,
			ReferenceTableName:   target.table.Name,
			ReferenceColumnNames: refCols,
			OnUpdate:             onUpdate,
			OnDelete:             onDelete,
		})
	}

	out := schema.Schema{Name: "public"}
	for _, entity := range order {
		out.Tables = append(out.Tables, builds[entity].table)
	}
	return out
}

func buildColumn(tableName, field string, opts ColumnOptions) schema.Column {
	name := opts.Name
	if name == "" {
		name = field
	}
	colType := opts.Type
	if colType == "" {
		colType = "character varying"
	}

	col := schema.Column{
		TableName:        tableName,
		Name:             name,
		Type:             colType,
		Nullable:         opts.Nullable,
		IsArray:          opts.IsArray,
		Primary:          opts.Primary,
		NumericPrecision: opts.NumericPrecision,
		NumericScale:     opts.NumericScale,
	}
	if len(opts.Enum) > 0 {
		col.Type = "enum"
		col.Values = opts.Enum
	}

	def, isNull := schema.NormalizeDefault(opts.Default)
	if isNull {
		col.Nullable = true
	} else {
		col.Default = def
	}
	return col
}

// toSnakeCase converts an entity name such as LibraryEntity to
// library_entity. Consecutive capitals stay together (APIKey -> apikey).
func toSnakeCase(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(prev) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return b.String()
}
