// Package loader reads entity declarations from a YAML file and registers
// them on a metadata registry. It is the file-based alternative to
// registering Go structs directly.
package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wangvm/pgdelta/metadata"
	"github.com/wangvm/pgdelta/schema"
)

type yamlFile struct {
	Tables []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	// Entity is the logical name declarations reference each other by;
	// defaults to Name.
	Entity    string         `yaml:"entity"`
	Name      string         `yaml:"name"`
	Columns   []yamlColumn   `yaml:"columns"`
	Indexes   []yamlIndex    `yaml:"indexes"`
	Relations []yamlRelation `yaml:"relations"`
}

type yamlColumn struct {
	Name      string     `yaml:"name"`
	Column    string     `yaml:"column"`
	Type      string     `yaml:"type"`
	Primary   bool       `yaml:"primary"`
	Unique    bool       `yaml:"unique"`
	Nullable  bool       `yaml:"nullable"`
	Array     bool       `yaml:"array"`
	Enum      []string   `yaml:"enum"`
	Default   yaml.Node  `yaml:"default"`
	Precision *int       `yaml:"precision"`
	Scale     *int       `yaml:"scale"`
	Index     *yamlIndex `yaml:"index"`
}

type yamlIndex struct {
	Name       string   `yaml:"name"`
	Columns    []string `yaml:"columns"`
	Expression string   `yaml:"expression"`
	Using      string   `yaml:"using"`
	Where      string   `yaml:"where"`
	Unique     bool     `yaml:"unique"`
}

type yamlRelation struct {
	Property string `yaml:"property"`
	Target   string `yaml:"target"`
	OnDelete string `yaml:"onDelete"`
	OnUpdate string `yaml:"onUpdate"`
}

// LoadFile reads declarations from a YAML file into the registry.
func LoadFile(filename string, reg *metadata.Registry) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading schema file: %w", err)
	}
	return Load(data, reg)
}

// Load registers YAML declarations on the registry.
func Load(data []byte, reg *metadata.Registry) error {
	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return fmt.Errorf("unmarshalling YAML: %w", err)
	}

	for _, t := range yf.Tables {
		entity := t.Entity
		if entity == "" {
			entity = t.Name
		}
		if entity == "" {
			return fmt.Errorf("table declaration needs an entity or name")
		}
		reg.Table(entity, metadata.TableOptions{Name: t.Name})

		for _, c := range t.Columns {
			if c.Name == "" {
				return fmt.Errorf("table %s: column declaration needs a name", entity)
			}
			opts := metadata.ColumnOptions{
				Name:             c.Column,
				Type:             c.Type,
				Primary:          c.Primary,
				Unique:           c.Unique,
				Nullable:         c.Nullable,
				IsArray:          c.Array,
				Enum:             c.Enum,
				NumericPrecision: c.Precision,
				NumericScale:     c.Scale,
			}
			def, err := defaultValue(&c.Default)
			if err != nil {
				return fmt.Errorf("table %s, column %s: %w", entity, c.Name, err)
			}
			opts.Default = def
			reg.Column(entity, c.Name, opts)

			if c.Index != nil {
				reg.ColumnIndex(entity, c.Name, metadata.ColumnIndexOptions{
					Name:   c.Index.Name,
					Unique: c.Index.Unique,
					Using:  c.Index.Using,
					Where:  c.Index.Where,
				})
			}
		}

		for _, i := range t.Indexes {
			reg.Index(entity, metadata.IndexOptions{
				Name:       i.Name,
				Columns:    i.Columns,
				Expression: i.Expression,
				Using:      i.Using,
				Where:      i.Where,
				Unique:     i.Unique,
			})
		}

		for _, rel := range t.Relations {
			if rel.Property == "" || rel.Target == "" {
				return fmt.Errorf("table %s: relation needs property and target", entity)
			}
			reg.Relation(entity, rel.Property, metadata.RelationOptions{
				Target:   rel.Target,
				OnDelete: schema.ForeignKeyAction(rel.OnDelete),
				OnUpdate: schema.ForeignKeyAction(rel.OnUpdate),
			})
		}
	}
	return nil
}

// defaultValue converts a YAML default node into the compiler's default
// value. An explicit `default: null` is distinct from an absent key: it
// forces the column nullable with no DEFAULT clause.
func defaultValue(node *yaml.Node) (any, error) {
	if node == nil || node.Kind == 0 {
		return nil, nil
	}
	switch node.Tag {
	case "!!null":
		return schema.NullDefault{}, nil
	case "!!bool":
		var v bool
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("decoding bool default: %w", err)
		}
		return v, nil
	default:
		var v string
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("decoding default: %w", err)
		}
		return v, nil
	}
}
