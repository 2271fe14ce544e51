package introspect

import (
	"context"
	"errors"
	"fmt"
)

// CatalogError wraps a failure while reading the Postgres catalog. Cancelled
// is set when the caller's context was cancelled mid-introspection.
type CatalogError struct {
	Schema    string
	Op        string
	Cancelled bool
	Err       error
}

func (e *CatalogError) Error() string {
	if e.Cancelled {
		return fmt.Sprintf("introspecting schema %q: %s: cancelled: %v", e.Schema, e.Op, e.Err)
	}
	return fmt.Sprintf("introspecting schema %q: %s: %v", e.Schema, e.Op, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

func catalogErr(schemaName, op string, err error) error {
	return &CatalogError{
		Schema:    schemaName,
		Op:        op,
		Cancelled: errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded),
		Err:       err,
	}
}
