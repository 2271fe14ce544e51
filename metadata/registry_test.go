package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangvm/pgdelta/schema"
)

func TestCompileTableNames(t *testing.T) {
	reg := NewRegistry()
	reg.Table("UserEntity", TableOptions{})
	reg.Table("AssetEntity", TableOptions{Name: "assets"})

	s := reg.Compile()
	assert.Equal(t, []string{"user_entity", "assets"}, s.TableNames())
}

func TestCompileColumnDefaults(t *testing.T) {
	reg := NewRegistry()
	reg.Table("User", TableOptions{Name: "users"})
	reg.Column("User", "email", ColumnOptions{})
	reg.Column("User", "isAdmin", ColumnOptions{Type: "boolean", Default: false})

	s := reg.Compile()
	table, ok := s.Table("users")
	require.True(t, ok)

	email, ok := table.Column("email")
	require.True(t, ok)
	assert.Equal(t, "character varying", email.Type)
	assert.False(t, email.Nullable)
	assert.Nil(t, email.Default)

	isAdmin, ok := table.Column("isAdmin")
	require.True(t, ok)
	require.NotNil(t, isAdmin.Default)
	assert.Equal(t, "FALSE", *isAdmin.Default)
}

func TestCompileNullDefaultForcesNullable(t *testing.T) {
	reg := NewRegistry()
	reg.Table("User", TableOptions{Name: "users"})
	reg.Column("User", "profileImagePath", ColumnOptions{Default: schema.NullDefault{}})

	s := reg.Compile()
	table, _ := s.Table("users")
	col, ok := table.Column("profileImagePath")
	require.True(t, ok)
	assert.True(t, col.Nullable)
	assert.Nil(t, col.Default)
}

func TestCompileEnumColumn(t *testing.T) {
	reg := NewRegistry()
	reg.Table("Asset", TableOptions{Name: "assets"})
	reg.Column("Asset", "status", ColumnOptions{Enum: []string{"active", "trashed", "deleted"}})

	s := reg.Compile()
	table, _ := s.Table("assets")
	col, _ := table.Column("status")
	assert.Equal(t, "enum", col.Type)
	assert.Equal(t, []string{"active", "trashed", "deleted"}, col.Values)
}

func TestCompileUniqueColumnSynthesizesConstraint(t *testing.T) {
	reg := NewRegistry()
	reg.Table("User", TableOptions{Name: "users"})
	reg.Column("User", "email", ColumnOptions{Unique: true})

	s := reg.Compile()
	table, _ := s.Table("users")
	uqs := table.ConstraintsOfType(schema.UniqueConstraint)
	require.Len(t, uqs, 1)
	assert.Equal(t, schema.UniqueName("users", []string{"email"}), uqs[0].Name)
	assert.Len(t, uqs[0].Name, 30)
	assert.Equal(t, []string{"email"}, uqs[0].ColumnNames)
}

func TestCompileUniquePrimaryGetsNoUniqueConstraint(t *testing.T) {
	reg := NewRegistry()
	reg.Table("User", TableOptions{Name: "users"})
	reg.Column("User", "id", ColumnOptions{Type: "uuid", Primary: true, Unique: true})

	s := reg.Compile()
	table, _ := s.Table("users")
	assert.Empty(t, table.ConstraintsOfType(schema.UniqueConstraint))
	require.Len(t, table.ConstraintsOfType(schema.PrimaryKeyConstraint), 1)
}

func TestCompilePrimaryKey(t *testing.T) {
	reg := NewRegistry()
	reg.Table("AlbumAsset", TableOptions{Name: "albums_assets"})
	reg.Column("AlbumAsset", "albumsId", ColumnOptions{Type: "uuid", Primary: true})
	reg.Column("AlbumAsset", "assetsId", ColumnOptions{Type: "uuid", Primary: true})

	s := reg.Compile()
	table, _ := s.Table("albums_assets")
	pks := table.ConstraintsOfType(schema.PrimaryKeyConstraint)
	require.Len(t, pks, 1)
	assert.Equal(t, []string{"albumsId", "assetsId"}, pks[0].ColumnNames)
	assert.Equal(t, schema.PrimaryKeyName("albums_assets", []string{"assetsId", "albumsId"}), pks[0].Name)
}

func TestCompileIndexes(t *testing.T) {
	reg := NewRegistry()
	reg.Table("Asset", TableOptions{Name: "assets"})
	reg.Column("Asset", "checksum", ColumnOptions{Type: "bytea"})
	reg.Column("Asset", "city", ColumnOptions{Nullable: true})
	reg.Index("Asset", IndexOptions{
		Name:    "IDX_assets_checksum",
		Columns: []string{"checksum"},
		Using:   "hash",
	})
	reg.ColumnIndex("Asset", "city", ColumnIndexOptions{})

	s := reg.Compile()
	table, _ := s.Table("assets")
	require.Len(t, table.Indexes, 2)
	assert.Equal(t, "IDX_assets_checksum", table.Indexes[0].Name)
	assert.Equal(t, "hash", table.Indexes[0].Using)
	// Field-level index with no name gets a synthesized one.
	assert.Equal(t, schema.IndexName("assets", []string{"city"}), table.Indexes[1].Name)
	assert.Equal(t, []string{"city"}, table.Indexes[1].ColumnNames)
}

func TestCompileRelation(t *testing.T) {
	reg := NewRegistry()
	reg.Table("User", TableOptions{Name: "users"})
	reg.Column("User", "id", ColumnOptions{Type: "uuid", Primary: true})
	reg.Table("Asset", TableOptions{Name: "assets"})
	reg.Column("Asset", "id", ColumnOptions{Type: "uuid", Primary: true})
	reg.Relation("Asset", "owner", RelationOptions{
		Target:   "User",
		OnDelete: schema.Cascade,
		OnUpdate: schema.Cascade,
	})

	s := reg.Compile()
	table, _ := s.Table("assets")

	col, ok := table.Column("ownerId")
	require.True(t, ok)
	assert.Equal(t, "uuid", col.Type)
	assert.True(t, col.Nullable)

	fks := table.ConstraintsOfType(schema.ForeignKeyConstraint)
	require.Len(t, fks, 1)
	assert.Equal(t, schema.ForeignKeyName("assets", []string{"ownerId"}), fks[0].Name)
	assert.Equal(t, "users", fks[0].ReferenceTableName)
	assert.Equal(t, []string{"id"}, fks[0].ReferenceColumnNames)
	assert.Equal(t, schema.Cascade, fks[0].OnDelete)
}

func TestCompileRelationKeepsDeclaredColumn(t *testing.T) {
	reg := NewRegistry()
	reg.Table("User", TableOptions{Name: "users"})
	reg.Column("User", "id", ColumnOptions{Type: "uuid", Primary: true})
	reg.Table("Asset", TableOptions{Name: "assets"})
	reg.Column("Asset", "ownerId", ColumnOptions{Type: "uuid"})
	reg.Relation("Asset", "owner", RelationOptions{Target: "User"})

	s := reg.Compile()
	table, _ := s.Table("assets")

	col, ok := table.Column("ownerId")
	require.True(t, ok)
	// The declared column wins; the relation only adds the constraint.
	assert.False(t, col.Nullable)
	require.Len(t, table.ConstraintsOfType(schema.ForeignKeyConstraint), 1)
}

func TestCompileRelationDefaultsActionsToNoAction(t *testing.T) {
	reg := NewRegistry()
	reg.Table("User", TableOptions{Name: "users"})
	reg.Column("User", "id", ColumnOptions{Type: "uuid", Primary: true})
	reg.Table("Asset", TableOptions{Name: "assets"})
	reg.Column("Asset", "id", ColumnOptions{Type: "uuid", Primary: true})
	reg.Relation("Asset", "owner", RelationOptions{Target: "User"})

	s := reg.Compile()
	table, _ := s.Table("assets")
	fks := table.ConstraintsOfType(schema.ForeignKeyConstraint)
	require.Len(t, fks, 1)
	// Unspecified actions compile to NO ACTION, matching what the catalog
	// reports, so an unchanged relation diffs clean.
	assert.Equal(t, schema.NoAction, fks[0].OnUpdate)
	assert.Equal(t, schema.NoAction, fks[0].OnDelete)
}

func TestCompileRelationToUnknownTargetIsDropped(t *testing.T) {
	reg := NewRegistry()
	reg.Table("Asset", TableOptions{Name: "assets"})
	reg.Column("Asset", "id", ColumnOptions{Type: "uuid", Primary: true})
	reg.Relation("Asset", "owner", RelationOptions{Target: "Ghost"})

	s := reg.Compile()
	table, _ := s.Table("assets")
	assert.Empty(t, table.ConstraintsOfType(schema.ForeignKeyConstraint))
	_, ok := table.Column("ownerId")
	assert.False(t, ok)
}

func TestCompileIsCachedAfterFirstCall(t *testing.T) {
	reg := NewRegistry()
	reg.Table("User", TableOptions{Name: "users"})
	reg.Column("User", "id", ColumnOptions{Type: "uuid", Primary: true})

	first := reg.Compile()
	reg.Table("Late", TableOptions{Name: "late"})
	second := reg.Compile()
	assert.Equal(t, first, second)
	assert.False(t, second.HasTable("late"))
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"UserEntity", "user_entity"},
		{"Asset", "asset"},
		{"APIKey", "apikey"},
		{"SharedLinkAsset", "shared_link_asset"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toSnakeCase(tt.in), tt.in)
	}
}
