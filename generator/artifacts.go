package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wangvm/pgdelta/diff"
	"github.com/wangvm/pgdelta/schema"
)

// Artifacts is everything one pipeline run produces. Database is expected to
// be pre-filtered to the tables the dynamic schema declares.
type Artifacts struct {
	Dynamic    schema.Schema
	Database   schema.Schema
	Changes    []diff.Change
	Statements []string
}

const (
	DynamicFile  = "schema-dynamic.json"
	DatabaseFile = "schema-database.json"
	DiffFile     = "schema-diff.json"
	SQLFile      = "schema-sql.sql"
)

// RenderSQL renders the up-migration file body: a -- UP header followed by
// one statement per line.
func RenderSQL(statements []string) string {
	var b strings.Builder
	b.WriteString("-- UP\n")
	for _, stmt := range statements {
		b.WriteString(stmt)
		b.WriteString("\n")
	}
	return b.String()
}

// WriteArtifacts writes the four artifact files into dir and returns their
// paths in write order.
func WriteArtifacts(dir string, a Artifacts) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	changes := a.Changes
	if changes == nil {
		changes = []diff.Change{}
	}

	files := []struct {
		name    string
		content []byte
	}{
		{DynamicFile, nil},
		{DatabaseFile, nil},
		{DiffFile, nil},
		{SQLFile, []byte(RenderSQL(a.Statements))},
	}

	var err error
	if files[0].content, err = marshalPretty(a.Dynamic); err != nil {
		return nil, err
	}
	if files[1].content, err = marshalPretty(a.Database); err != nil {
		return nil, err
	}
	if files[2].content, err = marshalPretty(changes); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.content, 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func marshalPretty(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling artifact: %w", err)
	}
	return append(data, '\n'), nil
}
