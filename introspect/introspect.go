// Package introspect reads a live PostgreSQL catalog and returns the schema
// model describing it. The five catalog queries are independent and run
// concurrently; their row sets merge single-threaded into the Schema value.
package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/wangvm/pgdelta/logging"
	"github.com/wangvm/pgdelta/schema"
)

const (
	tablesQuery = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = $1 AND table_type = 'BASE TABLE'
	ORDER BY table_name;
	`

	columnsQuery = `
	SELECT
		c.table_name,
		c.column_name,
		c.data_type,
		(c.is_nullable = 'YES') AS is_nullable,
		c.column_default,
		c.numeric_precision,
		c.numeric_scale,
		c.udt_name,
		e.data_type AS element_type
	FROM information_schema.columns c
	LEFT JOIN information_schema.element_types e
		ON c.table_catalog = e.object_catalog
		AND c.table_schema = e.object_schema
		AND c.table_name = e.object_name
		AND e.object_type = 'TABLE'
		AND c.dtd_identifier = e.collection_type_identifier
	WHERE c.table_schema = $1
	ORDER BY c.table_name, c.ordinal_position;
	`

	enumsQuery = `
	SELECT t.typname, e.enumlabel
	FROM pg_type t
	JOIN pg_namespace n ON n.oid = t.typnamespace
	JOIN pg_enum e ON e.enumtypid = t.oid
	WHERE n.nspname = $1 AND t.typtype = 'e'
	ORDER BY t.typname, e.enumsortorder;
	`

	// Indexes backing a PK or UNIQUE constraint are excluded; the
	// constraint itself represents them.
	indexesQuery = `
	SELECT
		ic.relname AS index_name,
		tc.relname AS table_name,
		ix.indisunique,
		am.amname,
		pg_get_expr(ix.indexprs, ix.indrelid) AS expression,
		pg_get_expr(ix.indpred, ix.indrelid) AS predicate,
		(SELECT array_agg(a.attname ORDER BY a.attnum)
			FROM pg_attribute a
			WHERE a.attrelid = ix.indrelid AND a.attnum = ANY (ix.indkey)
		) AS column_names
	FROM pg_index ix
	JOIN pg_class ic ON ic.oid = ix.indexrelid
	JOIN pg_class tc ON tc.oid = ix.indrelid
	JOIN pg_namespace n ON n.oid = tc.relnamespace
	JOIN pg_am am ON am.oid = ic.relam
	WHERE n.nspname = $1
		AND NOT EXISTS (
			SELECT 1 FROM pg_constraint pc
			WHERE pc.conindid = ix.indexrelid AND pc.contype IN ('p', 'u')
		)
	ORDER BY ic.relname;
	`

	constraintsQuery = `
	SELECT
		pc.conname,
		pc.contype::text,
		tc.relname AS table_name,
		rc.relname AS reference_table_name,
		(SELECT array_agg(a.attname ORDER BY k.ord)
			FROM unnest(pc.conkey) WITH ORDINALITY AS k(attnum, ord)
			JOIN pg_attribute a ON a.attrelid = pc.conrelid AND a.attnum = k.attnum
		) AS column_names,
		(SELECT array_agg(a.attname ORDER BY k.ord)
			FROM unnest(pc.confkey) WITH ORDINALITY AS k(attnum, ord)
			JOIN pg_attribute a ON a.attrelid = pc.confrelid AND a.attnum = k.attnum
		) AS reference_column_names,
		pc.confupdtype::text,
		pc.confdeltype::text,
		pg_get_constraintdef(pc.oid) AS definition
	FROM pg_constraint pc
	JOIN pg_namespace n ON n.oid = pc.connamespace
	JOIN pg_class tc ON tc.oid = pc.conrelid AND tc.relkind IN ('r', 'p', 'f')
	LEFT JOIN pg_class rc ON rc.oid = pc.confrelid
	WHERE n.nspname = $1 AND pc.contype IN ('p', 'f', 'u', 'c')
	ORDER BY pc.conname;
	`
)

type columnRow struct {
	TableName        string
	ColumnName       string
	DataType         string
	IsNullable       bool
	ColumnDefault    *string
	NumericPrecision *int
	NumericScale     *int
	UdtName          string
	ElementType      *string
}

type constraintRow struct {
	Name                 string
	Contype              string
	TableName            string
	ReferenceTableName   string
	ColumnNames          []string
	ReferenceColumnNames []string
	OnUpdate             string
	OnDelete             string
	Definition           string
}

// LoadSchema introspects the given namespace and returns its schema model.
// It fails with a *CatalogError when the namespace does not exist or a
// catalog query fails; partial results are discarded on cancellation.
func LoadSchema(ctx context.Context, pool *pgxpool.Pool, schemaName string) (schema.Schema, error) {
	if schemaName == "" {
		schemaName = "public"
	}

	var exists bool
	existsQuery := `SELECT EXISTS (SELECT 1 FROM pg_namespace WHERE nspname = $1)`
	if err := pool.QueryRow(ctx, existsQuery, schemaName).Scan(&exists); err != nil {
		return schema.Schema{}, catalogErr(schemaName, "checking namespace", err)
	}
	if !exists {
		return schema.Schema{}, catalogErr(schemaName, "checking namespace", fmt.Errorf("namespace does not exist"))
	}

	var (
		tableNames  []string
		columns     []columnRow
		enums       map[string][]string
		indexes     []schema.Index
		constraints []constraintRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tableNames, err = queryTables(gctx, pool, schemaName)
		return err
	})
	g.Go(func() (err error) {
		columns, err = queryColumns(gctx, pool, schemaName)
		return err
	})
	g.Go(func() (err error) {
		enums, err = queryEnums(gctx, pool, schemaName)
		return err
	})
	g.Go(func() (err error) {
		indexes, err = queryIndexes(gctx, pool, schemaName)
		return err
	})
	g.Go(func() (err error) {
		constraints, err = queryConstraints(gctx, pool, schemaName)
		return err
	})
	if err := g.Wait(); err != nil {
		return schema.Schema{}, err
	}

	return mergeSchema(schemaName, tableNames, columns, enums, indexes, constraints), nil
}

func queryTables(ctx context.Context, pool *pgxpool.Pool, schemaName string) ([]string, error) {
	rows, err := pool.Query(ctx, tablesQuery, schemaName)
	if err != nil {
		return nil, catalogErr(schemaName, "querying tables", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, catalogErr(schemaName, "scanning table name", err)
		}
		names = append(names, name)
	}
	if rows.Err() != nil {
		return nil, catalogErr(schemaName, "iterating table rows", rows.Err())
	}
	return names, nil
}

func queryColumns(ctx context.Context, pool *pgxpool.Pool, schemaName string) ([]columnRow, error) {
	rows, err := pool.Query(ctx, columnsQuery, schemaName)
	if err != nil {
		return nil, catalogErr(schemaName, "querying columns", err)
	}
	defer rows.Close()

	var cols []columnRow
	for rows.Next() {
		var c columnRow
		if err := rows.Scan(
			&c.TableName,
			&c.ColumnName,
			&c.DataType,
			&c.IsNullable,
			&c.ColumnDefault,
			&c.NumericPrecision,
			&c.NumericScale,
			&c.UdtName,
			&c.ElementType,
		); err != nil {
			return nil, catalogErr(schemaName, "scanning column", err)
		}
		cols = append(cols, c)
	}
	if rows.Err() != nil {
		return nil, catalogErr(schemaName, "iterating column rows", rows.Err())
	}
	return cols, nil
}

func queryEnums(ctx context.Context, pool *pgxpool.Pool, schemaName string) (map[string][]string, error) {
	rows, err := pool.Query(ctx, enumsQuery, schemaName)
	if err != nil {
		return nil, catalogErr(schemaName, "querying enums", err)
	}
	defer rows.Close()

	enums := map[string][]string{}
	for rows.Next() {
		var name, label string
		if err := rows.Scan(&name, &label); err != nil {
			return nil, catalogErr(schemaName, "scanning enum label", err)
		}
		enums[name] = append(enums[name], label)
	}
	if rows.Err() != nil {
		return nil, catalogErr(schemaName, "iterating enum rows", rows.Err())
	}
	return enums, nil
}

func queryIndexes(ctx context.Context, pool *pgxpool.Pool, schemaName string) ([]schema.Index, error) {
	rows, err := pool.Query(ctx, indexesQuery, schemaName)
	if err != nil {
		return nil, catalogErr(schemaName, "querying indexes", err)
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var (
			idx        schema.Index
			expr, pred pgtype.Text
		)
		if err := rows.Scan(
			&idx.Name,
			&idx.TableName,
			&idx.Unique,
			&idx.Using,
			&expr,
			&pred,
			&idx.ColumnNames,
		); err != nil {
			return nil, catalogErr(schemaName, "scanning index", err)
		}
		idx.Expression = expr.String
		idx.Where = pred.String
		if idx.Expression != "" {
			// Functional index: the expression carries the definition.
			idx.ColumnNames = nil
		}
		indexes = append(indexes, idx)
	}
	if rows.Err() != nil {
		return nil, catalogErr(schemaName, "iterating index rows", rows.Err())
	}
	return indexes, nil
}

func queryConstraints(ctx context.Context, pool *pgxpool.Pool, schemaName string) ([]constraintRow, error) {
	rows, err := pool.Query(ctx, constraintsQuery, schemaName)
	if err != nil {
		return nil, catalogErr(schemaName, "querying constraints", err)
	}
	defer rows.Close()

	var constraints []constraintRow
	for rows.Next() {
		var c constraintRow
		var refTable, onUpdate, onDelete pgtype.Text
		if err := rows.Scan(
			&c.Name,
			&c.Contype,
			&c.TableName,
			&refTable,
			&c.ColumnNames,
			&c.ReferenceColumnNames,
			&onUpdate,
			&onDelete,
			&c.Definition,
		); err != nil {
			return nil, catalogErr(schemaName, "scanning constraint", err)
		}
		c.ReferenceTableName = refTable.String
		c.OnUpdate = onUpdate.String
		c.OnDelete = onDelete.String
		constraints = append(constraints, c)
	}
	if rows.Err() != nil {
		return nil, catalogErr(schemaName, "iterating constraint rows", rows.Err())
	}
	return constraints, nil
}

func mergeSchema(
	schemaName string,
	tableNames []string,
	columns []columnRow,
	enums map[string][]string,
	indexes []schema.Index,
	constraints []constraintRow,
) schema.Schema {
	colsByTable := map[string][]columnRow{}
	for _, c := range columns {
		colsByTable[c.TableName] = append(colsByTable[c.TableName], c)
	}
	indexesByTable := map[string][]schema.Index{}
	for _, i := range indexes {
		indexesByTable[i.TableName] = append(indexesByTable[i.TableName], i)
	}
	constraintsByTable := map[string][]constraintRow{}
	for _, c := range constraints {
		constraintsByTable[c.TableName] = append(constraintsByTable[c.TableName], c)
	}

	out := schema.Schema{Name: schemaName}
	for _, tableName := range tableNames {
		table := schema.Table{Name: tableName}

		primary := primaryColumns(constraintsByTable[tableName])
		for _, row := range colsByTable[tableName] {
			col, ok := buildColumn(row, enums)
			if !ok {
				continue
			}
			col.Primary = primary[col.Name]
			table.Columns = append(table.Columns, col)
		}

		table.Indexes = indexesByTable[tableName]

		for _, row := range constraintsByTable[tableName] {
			constraint, ok := buildConstraint(row)
			if !ok {
				continue
			}
			table.Constraints = append(table.Constraints, constraint)
		}

		out.Tables = append(out.Tables, table)
	}
	return out
}

func primaryColumns(rows []constraintRow) map[string]bool {
	primary := map[string]bool{}
	for _, row := range rows {
		if row.Contype != "p" {
			continue
		}
		for _, name := range row.ColumnNames {
			primary[name] = true
		}
	}
	return primary
}

// buildColumn normalizes one information_schema.columns row. Columns whose
// element type or enum type cannot be resolved are dropped with a warning.
func buildColumn(row columnRow, enums map[string][]string) (schema.Column, bool) {
	col := schema.Column{
		TableName:        row.TableName,
		Name:             row.ColumnName,
		Type:             row.DataType,
		Nullable:         row.IsNullable,
		Default:          row.ColumnDefault,
		NumericPrecision: row.NumericPrecision,
		NumericScale:     row.NumericScale,
	}

	switch row.DataType {
	case "ARRAY":
		if row.ElementType == nil {
			logging.Warn().
				Str("table", row.TableName).
				Str("column", row.ColumnName).
				Msg("array column has no element type, dropping")
			return schema.Column{}, false
		}
		col.Type = *row.ElementType
		col.IsArray = true
	case "USER-DEFINED":
		values, ok := enums[row.UdtName]
		if !ok {
			logging.Warn().
				Str("table", row.TableName).
				Str("column", row.ColumnName).
				Str("udt", row.UdtName).
				Msg("unknown user-defined type, dropping column")
			return schema.Column{}, false
		}
		col.Type = "enum"
		col.Values = values
	}

	return col, true
}

// mapAction translates a pg_constraint action code into its DDL keyword.
func mapAction(code string) schema.ForeignKeyAction {
	switch code {
	case "c":
		return schema.Cascade
	case "r":
		return schema.Restrict
	case "n":
		return schema.SetNull
	case "d":
		return schema.SetDefault
	default:
		return schema.NoAction
	}
}

func buildConstraint(row constraintRow) (schema.Constraint, bool) {
	switch row.Contype {
	case "p":
		if len(row.ColumnNames) == 0 {
			logging.Warn().
				Str("table", row.TableName).
				Str("constraint", row.Name).
				Msg("primary key has no columns, skipping")
			return schema.Constraint{}, false
		}
		return schema.Constraint{
			Type:        schema.PrimaryKeyConstraint,
			Name:        row.Name,
			TableName:   row.TableName,
			ColumnNames: row.ColumnNames,
		}, true

	case "f":
		if len(row.ColumnNames) == 0 || row.ReferenceTableName == "" || len(row.ReferenceColumnNames) == 0 {
			logging.Warn().
				Str("table", row.TableName).
				Str("constraint", row.Name).
				Msg("foreign key is missing columns or reference, skipping")
			return schema.Constraint{}, false
		}
		return schema.Constraint{
			Type:                 schema.ForeignKeyConstraint,
			Name:                 row.Name,
			TableName:            row.TableName,
			ColumnNames:          row.ColumnNames,
			ReferenceTableName:   row.ReferenceTableName,
			ReferenceColumnNames: row.ReferenceColumnNames,
			OnUpdate:             mapAction(row.OnUpdate),
			OnDelete:             mapAction(row.OnDelete),
		}, true

	case "u":
		cols, err := parseUniqueColumns(row.Definition)
		if err != nil {
			logging.Warn().
				Str("table", row.TableName).
				Str("constraint", row.Name).
				Str("definition", row.Definition).
				Msg("cannot parse unique constraint columns, skipping")
			return schema.Constraint{}, false
		}
		return schema.Constraint{
			Type:        schema.UniqueConstraint,
			Name:        row.Name,
			TableName:   row.TableName,
			ColumnNames: cols,
		}, true

	case "c":
		return schema.Constraint{
			Type:       schema.CheckConstraint,
			Name:       row.Name,
			TableName:  row.TableName,
			Expression: checkExpression(row.Definition),
		}, true
	}
	return schema.Constraint{}, false
}

// parseUniqueColumns extracts the column list from a unique constraint
// definition such as `UNIQUE ("a", "b")`.
func parseUniqueColumns(definition string) ([]string, error) {
	open := strings.Index(definition, "(")
	end := strings.LastIndex(definition, ")")
	if open < 0 || end < open {
		return nil, fmt.Errorf("no parenthesized column list in %q", definition)
	}
	inner := definition[open+1 : end]
	if strings.TrimSpace(inner) == "" {
		return nil, fmt.Errorf("empty column list in %q", definition)
	}
	parts := strings.Split(inner, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		cols = append(cols, strings.Trim(strings.TrimSpace(p), `"`))
	}
	return cols, nil
}

// checkExpression strips the leading CHECK keyword from a constraint
// definition, leaving the predicate text verbatim.
func checkExpression(definition string) string {
	return strings.TrimPrefix(definition, "CHECK ")
}
