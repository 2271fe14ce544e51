package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangvm/pgdelta/metadata"
	"github.com/wangvm/pgdelta/schema"
)

const declarations = `
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
      - name: isAdmin
        type: boolean
        default: false
      - name: profileImagePath
        default: null
      - name: status
        enum: [active, deleted]
      - name: city
        nullable: true
        index:
          where: city IS NOT NULL
    indexes:
      - name: IDX_users_status_email
        columns: [status, email]
  - entity: AssetEntity
    name: assets
    columns:
      - name: id
        type: uuid
        primary: true
      - name: tags
        type: text
        array: true
        nullable: true
    relations:
      - property: owner
        target: UserEntity
        onDelete: CASCADE
        onUpdate: CASCADE
`

func TestLoad(t *testing.T) {
	reg := metadata.NewRegistry()
	require.NoError(t, Load([]byte(declarations), reg))
	s := reg.Compile()

	users, ok := s.Table("users")
	require.True(t, ok)

	id, _ := users.Column("id")
	assert.True(t, id.Primary)
	require.NotNil(t, id.Default)
	assert.Equal(t, "uuid_generate_v4()", *id.Default)

	isAdmin, _ := users.Column("isAdmin")
	require.NotNil(t, isAdmin.Default)
	assert.Equal(t, "FALSE", *isAdmin.Default)

	// default: null is distinct from no default.
	profile, _ := users.Column("profileImagePath")
	assert.True(t, profile.Nullable)
	assert.Nil(t, profile.Default)

	status, _ := users.Column("status")
	assert.Equal(t, "enum", status.Type)
	assert.Equal(t, []string{"active", "deleted"}, status.Values)

	require.Len(t, users.Indexes, 2)
	assert.Equal(t, "IDX_users_status_email", users.Indexes[0].Name)
	assert.Equal(t, []string{"status", "email"}, users.Indexes[0].ColumnNames)
	assert.Equal(t, "city IS NOT NULL", users.Indexes[1].Where)

	assert.Len(t, users.ConstraintsOfType(schema.UniqueConstraint), 1)

	assets, ok := s.Table("assets")
	require.True(t, ok)
	tags, _ := assets.Column("tags")
	assert.True(t, tags.IsArray)

	fks := assets.ConstraintsOfType(schema.ForeignKeyConstraint)
	require.Len(t, fks, 1)
	assert.Equal(t, "users", fks[0].ReferenceTableName)
	assert.Equal(t, []string{"ownerId"}, fks[0].ColumnNames)
	assert.Equal(t, []string{"id"}, fks[0].ReferenceColumnNames)
	assert.Equal(t, schema.Cascade, fks[0].OnDelete)
}

func TestLoadRejectsNamelessColumn(t *testing.T) {
	reg := metadata.NewRegistry()
	err := Load([]byte("tables:\n  - name: users\n    columns:\n      - type: uuid\n"), reg)
	assert.Error(t, err)
}

func TestLoadRejectsIncompleteRelation(t *testing.T) {
	reg := metadata.NewRegistry()
	err := Load([]byte("tables:\n  - name: assets\n    relations:\n      - property: owner\n"), reg)
	assert.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	reg := metadata.NewRegistry()
	assert.Error(t, Load([]byte("tables: ["), reg))
}
