package introspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangvm/pgdelta/schema"
)

func strptr(s string) *string { return &s }

func TestMapAction(t *testing.T) {
	tests := []struct {
		code string
		want schema.ForeignKeyAction
	}{
		{"a", schema.NoAction},
		{"c", schema.Cascade},
		{"r", schema.Restrict},
		{"n", schema.SetNull},
		{"d", schema.SetDefault},
		{"x", schema.NoAction},
		{"", schema.NoAction},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapAction(tt.code), "code %q", tt.code)
	}
}

func TestBuildColumnPlain(t *testing.T) {
	col, ok := buildColumn(columnRow{
		TableName:     "users",
		ColumnName:    "email",
		DataType:      "character varying",
		IsNullable:    false,
		ColumnDefault: strptr("''::character varying"),
	}, nil)
	require.True(t, ok)
	assert.Equal(t, "character varying", col.Type)
	assert.False(t, col.Nullable)
	assert.Equal(t, "''::character varying", *col.Default)
}

func TestBuildColumnArray(t *testing.T) {
	col, ok := buildColumn(columnRow{
		TableName:   "assets",
		ColumnName:  "tags",
		DataType:    "ARRAY",
		IsNullable:  true,
		UdtName:     "_text",
		ElementType: strptr("text"),
	}, nil)
	require.True(t, ok)
	assert.True(t, col.IsArray)
	assert.Equal(t, "text", col.Type)
}

func TestBuildColumnArrayWithoutElementTypeIsDropped(t *testing.T) {
	_, ok := buildColumn(columnRow{
		TableName:  "assets",
		ColumnName: "tags",
		DataType:   "ARRAY",
	}, nil)
	assert.False(t, ok)
}

func TestBuildColumnEnum(t *testing.T) {
	enums := map[string][]string{"assets_status_enum": {"active", "trashed", "deleted"}}
	col, ok := buildColumn(columnRow{
		TableName:  "assets",
		ColumnName: "status",
		DataType:   "USER-DEFINED",
		UdtName:    "assets_status_enum",
	}, enums)
	require.True(t, ok)
	assert.Equal(t, "enum", col.Type)
	assert.Equal(t, []string{"active", "trashed", "deleted"}, col.Values)
}

func TestBuildColumnUnknownEnumIsDropped(t *testing.T) {
	_, ok := buildColumn(columnRow{
		TableName:  "assets",
		ColumnName: "status",
		DataType:   "USER-DEFINED",
		UdtName:    "mystery_type",
	}, map[string][]string{})
	assert.False(t, ok)
}

func TestBuildConstraintPrimaryKey(t *testing.T) {
	c, ok := buildConstraint(constraintRow{
		Name:        "PK_users",
		Contype:     "p",
		TableName:   "users",
		ColumnNames: []string{"id"},
	})
	require.True(t, ok)
	assert.Equal(t, schema.PrimaryKeyConstraint, c.Type)
	assert.Equal(t, []string{"id"}, c.ColumnNames)
}

func TestBuildConstraintPrimaryKeyWithoutColumnsIsSkipped(t *testing.T) {
	_, ok := buildConstraint(constraintRow{Name: "PK_broken", Contype: "p", TableName: "users"})
	assert.False(t, ok)
}

func TestBuildConstraintForeignKey(t *testing.T) {
	c, ok := buildConstraint(constraintRow{
		Name:                 "FK_assets_owner",
		Contype:              "f",
		TableName:            "assets",
		ReferenceTableName:   "users",
		ColumnNames:          []string{"ownerId"},
		ReferenceColumnNames: []string{"id"},
		OnUpdate:             "c",
		OnDelete:             "a",
	})
	require.True(t, ok)
	assert.Equal(t, schema.ForeignKeyConstraint, c.Type)
	assert.Equal(t, schema.Cascade, c.OnUpdate)
	assert.Equal(t, schema.NoAction, c.OnDelete)
}

func TestBuildConstraintForeignKeyMissingReferenceIsSkipped(t *testing.T) {
	_, ok := buildConstraint(constraintRow{
		Name:        "FK_broken",
		Contype:     "f",
		TableName:   "assets",
		ColumnNames: []string{"ownerId"},
	})
	assert.False(t, ok)
}

func TestBuildConstraintUnique(t *testing.T) {
	c, ok := buildConstraint(constraintRow{
		Name:       "UQ_users_email",
		Contype:    "u",
		TableName:  "users",
		Definition: `UNIQUE ("email", "deletedAt")`,
	})
	require.True(t, ok)
	assert.Equal(t, schema.UniqueConstraint, c.Type)
	assert.Equal(t, []string{"email", "deletedAt"}, c.ColumnNames)
}

func TestBuildConstraintUniqueUnparseableIsSkipped(t *testing.T) {
	_, ok := buildConstraint(constraintRow{
		Name:       "UQ_broken",
		Contype:    "u",
		TableName:  "users",
		Definition: "UNIQUE",
	})
	assert.False(t, ok)
}

func TestBuildConstraintCheck(t *testing.T) {
	c, ok := buildConstraint(constraintRow{
		Name:       "CHK_width",
		Contype:    "c",
		TableName:  "exif",
		Definition: `CHECK ((("exifImageWidth" > 0)))`,
	})
	require.True(t, ok)
	assert.Equal(t, schema.CheckConstraint, c.Type)
	assert.Equal(t, `((("exifImageWidth" > 0)))`, c.Expression)
}

func TestParseUniqueColumns(t *testing.T) {
	tests := []struct {
		name       string
		definition string
		want       []string
		wantErr    bool
	}{
		{"single", `UNIQUE ("email")`, []string{"email"}, false},
		{"multiple keep order", `UNIQUE ("b", "a")`, []string{"b", "a"}, false},
		{"unquoted", `UNIQUE (email)`, []string{"email"}, false},
		{"no parens", `UNIQUE`, nil, true},
		{"empty list", `UNIQUE ()`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUniqueColumns(tt.definition)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeSchemaGroupsByTable(t *testing.T) {
	// Indexes arrive pre-filtered from the catalog query; merge keeps the
	// per-table grouping intact.
	s := mergeSchema("public",
		[]string{"users"},
		[]columnRow{
			{TableName: "users", ColumnName: "id", DataType: "uuid"},
			{TableName: "users", ColumnName: "email", DataType: "character varying"},
		},
		nil,
		[]schema.Index{{Name: "IDX_users_email", TableName: "users", ColumnNames: []string{"email"}}},
		[]constraintRow{
			{Name: "PK_users", Contype: "p", TableName: "users", ColumnNames: []string{"id"}},
		},
	)

	require.Len(t, s.Tables, 1)
	table := s.Tables[0]
	assert.Equal(t, "users", table.Name)
	require.Len(t, table.Columns, 2)

	// Primary membership is derived from the PK constraint.
	id, _ := table.Column("id")
	assert.True(t, id.Primary)
	email, _ := table.Column("email")
	assert.False(t, email.Primary)

	require.Len(t, table.Indexes, 1)
	require.Len(t, table.Constraints, 1)
	assert.Equal(t, schema.PrimaryKeyConstraint, table.Constraints[0].Type)
}

func TestCatalogError(t *testing.T) {
	err := catalogErr("public", "querying tables", assert.AnError)
	var ce *CatalogError
	require.ErrorAs(t, err, &ce)
	assert.False(t, ce.Cancelled)
	assert.Contains(t, ce.Error(), "querying tables")
	assert.ErrorIs(t, err, assert.AnError)
}
