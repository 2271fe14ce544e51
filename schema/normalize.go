package schema

import (
	"fmt"
	"time"
)

// NullDefault marks an explicitly declared NULL column default. It produces
// no DEFAULT clause and forces the column to be nullable.
type NullDefault struct{}

// NormalizeDefault converts a declared default value into its SQL text.
// Booleans become TRUE/FALSE, times become ISO-8601 strings, strings pass
// through verbatim (they are SQL expressions, not quoted literals), and any
// other value is stringified. The second return is true when the declared
// default was NULL, which callers must translate into a nullable column with
// no default.
func NormalizeDefault(v any) (*string, bool) {
	switch d := v.(type) {
	case nil:
		return nil, false
	case NullDefault, *NullDefault:
		return nil, true
	case bool:
		s := "FALSE"
		if d {
			s = "TRUE"
		}
		return &s, false
	case time.Time:
		s := d.UTC().Format(time.RFC3339)
		return &s, false
	case string:
		return &d, false
	default:
		s := fmt.Sprintf("%v", d)
		return &s, false
	}
}
