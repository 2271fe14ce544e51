package schema

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
)

// Constraint names are derived from the table and its columns so that the
// same logical constraint gets the same name whether it comes from the
// metadata compiler or from catalog introspection. The recipe is
// sha1(table + "_" + sortedColumns joined by "_"), first 27 hex chars,
// prefixed with PK_/UQ_/FK_, giving a 30-char identifier.

func hashedName(prefix, tableName string, columnNames []string) string {
	cols := append([]string(nil), columnNames...)
	sort.Strings(cols)
	sum := sha1.Sum([]byte(tableName + "_" + strings.Join(cols, "_")))
	return prefix + hex.EncodeToString(sum[:])[:27]
}

// PrimaryKeyName returns the synthesized name for a primary-key constraint.
func PrimaryKeyName(tableName string, columnNames []string) string {
	return hashedName("PK_", tableName, columnNames)
}

// UniqueName returns the synthesized name for a unique constraint.
func UniqueName(tableName string, columnNames []string) string {
	return hashedName("UQ_", tableName, columnNames)
}

// ForeignKeyName returns the synthesized name for a foreign-key constraint,
// hashed over the child table and its referencing columns.
func ForeignKeyName(tableName string, columnNames []string) string {
	return hashedName("FK_", tableName, columnNames)
}

// IndexName returns the synthesized name for an index whose declaration did
// not provide one.
func IndexName(tableName string, columnNames []string) string {
	return hashedName("IDX_", tableName, columnNames)
}
