package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/entityindex/registry"
)

// Entity declares one indexable entity type backed by a table.
type Entity struct {
	// Name is the mapping key in the entities section.
	Name               string                      `yaml:"-"`
	Table              string                      `yaml:"table"`       // default: Name
	PrimaryKey         string                      `yaml:"primary_key"` // default: id
	Columns            []string                    `yaml:"columns"`
	JSONColumns        []string                    `yaml:"json_columns"`
	Fields             registry.FieldRules         `yaml:"fields"`
	OptionalAttributes registry.OptionalAttributes `yaml:"optional_attributes"`
	SearchableWhere    string                      `yaml:"searchable_where"`
}

// Entities keeps the declaration order of the entities mapping.
type Entities []Entity

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Entities) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: entities must be a mapping of type name to options", node.Line)
	}

	out := make(Entities, 0, len(node.Content)/2)
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		if seen[name] {
			return fmt.Errorf("line %d: entity %q declared twice", node.Content[i].Line, name)
		}
		seen[name] = true

		var ent Entity
		if err := node.Content[i+1].Decode(&ent); err != nil {
			return fmt.Errorf("entity %q: %w", name, err)
		}
		ent.Name = name
		out = append(out, ent)
	}
	*e = out
	return nil
}

// Names returns the entity type names in declaration order.
func (e Entities) Names() []string {
	names := make([]string, len(e))
	for i, ent := range e {
		names[i] = ent.Name
	}
	return names
}
