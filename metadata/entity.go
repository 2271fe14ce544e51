package metadata

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/wangvm/pgdelta/schema"
)

// RegisterEntity registers a struct type and its tagged fields on the
// default registry. The `pgdelta` struct tag carries the column options:
//
//	type User struct {
//		ID      string `pgdelta:"primary;type:uuid;default:uuid_generate_v4()"`
//		Email   string `pgdelta:"unique"`
//		Status  string `pgdelta:"enum:active|deleted;default:active"`
//		OwnerID string `pgdelta:"-"`
//	}
//	metadata.RegisterEntity(User{}, metadata.TableOptions{Name: "users"})
//
// Supported keys: column, type, default, enum (labels joined by |),
// index (optional name), relation (target entity), ondelete, onupdate.
// Supported flags: primary, unique, nullable, array. A tag of "-" skips the
// field; untagged fields get the defaults (character varying, not null).
func RegisterEntity(v any, opts ...TableOptions) error {
	return DefaultRegistry.Entity(v, opts...)
}

// Entity registers a struct type on this registry. See RegisterEntity.
func (r *Registry) Entity(v any, opts ...TableOptions) error {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("registering entity: expected struct, got %T", v)
	}

	var tableOpts TableOptions
	if len(opts) > 0 {
		tableOpts = opts[0]
	}
	entity := t.Name()
	r.Table(entity, tableOpts)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("pgdelta")
		if tag == "-" {
			continue
		}
		if err := r.registerField(entity, field.Name, tag); err != nil {
			return fmt.Errorf("registering %s.%s: %w", entity, field.Name, err)
		}
	}
	return nil
}

func (r *Registry) registerField(entity, field, tag string) error {
	var (
		col      ColumnOptions
		relation *RelationOptions
		index    *ColumnIndexOptions
	)

	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		if hasValue {
			value = strings.TrimSpace(value)
			switch key {
			case "column":
				col.Name = value
			case "type":
				col.Type = value
			case "default":
				col.Default = value
			case "enum":
				col.Enum = strings.Split(value, "|")
			case "index":
				index = &ColumnIndexOptions{Name: value}
			case "relation":
				relation = &RelationOptions{Target: value}
			case "ondelete":
				if relation == nil {
					return fmt.Errorf("ondelete without relation")
				}
				relation.OnDelete = schema.ForeignKeyAction(value)
			case "onupdate":
				if relation == nil {
					return fmt.Errorf("onupdate without relation")
				}
				relation.OnUpdate = schema.ForeignKeyAction(value)
			default:
				return fmt.Errorf("unknown tag key %q", key)
			}
			continue
		}
		switch key {
		case "primary":
			col.Primary = true
		case "unique":
			col.Unique = true
		case "nullable":
			col.Nullable = true
		case "array":
			col.IsArray = true
		case "index":
			index = &ColumnIndexOptions{}
		default:
			return fmt.Errorf("unknown tag flag %q", key)
		}
	}

	if relation != nil {
		// Relation fields describe the association, not a column of their
		// own; pass 5 of the compiler synthesizes the {property}Id column.
		r.Relation(entity, field, *relation)
		return nil
	}

	r.Column(entity, field, col)
	if index != nil {
		r.ColumnIndex(entity, field, *index)
	}
	return nil
}
