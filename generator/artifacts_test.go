package generator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangvm/pgdelta/diff"
	"github.com/wangvm/pgdelta/schema"
)

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()

	dynamic := schema.Schema{Name: "public", Tables: []schema.Table{{
		Name: "users",
		Columns: []schema.Column{
			{TableName: "users", Name: "id", Type: "uuid"},
		},
	}}}
	changes := []diff.Change{{Type: diff.TableCreate, TableName: "users", Columns: dynamic.Tables[0].Columns}}

	paths, err := WriteArtifacts(dir, Artifacts{
		Dynamic:    dynamic,
		Database:   schema.Schema{Name: "public"},
		Changes:    changes,
		Statements: ToSQL(changes),
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, DynamicFile),
		filepath.Join(dir, DatabaseFile),
		filepath.Join(dir, DiffFile),
		filepath.Join(dir, SQLFile),
	}, paths)

	var decoded schema.Schema
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, dynamic, decoded)

	sqlData, err := os.ReadFile(paths[3])
	require.NoError(t, err)
	assert.Equal(t, "-- UP\nCREATE TABLE \"users\" (\"id\" uuid NOT NULL);\n", string(sqlData))
}

func TestWriteArtifactsEmptyDiffIsAnArray(t *testing.T) {
	dir := t.TempDir()

	_, err := WriteArtifacts(dir, Artifacts{})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, DiffFile))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}
