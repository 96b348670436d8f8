package registry

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultBoost is applied to fields declared without an explicit boost.
const DefaultBoost = 1.0

// DefaultOptionalField is the attribute read when optional attributes are
// enabled without naming a field.
const DefaultOptionalField = "optional_attributes"

// FieldRule declares one indexed field and its relevance boost.
type FieldRule struct {
	Name  string
	Boost float64
}

// FieldRules is an ordered list of field rules.
//
// In YAML it may be written as a sequence of bare names and single-key
// mappings, or as a mapping from name to rule:
//
//	fields: [title, {body: {boost: 2}}]
//
//	fields:
//	  title: {}
//	  body: {boost: 2}
//	  summary: 1.5
type FieldRules []FieldRule

// Names returns the field names in declaration order.
func (r FieldRules) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *FieldRules) UnmarshalYAML(node *yaml.Node) error {
	var rules FieldRules

	switch node.Kind {
	case yaml.SequenceNode:
		for _, item := range node.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				rules = append(rules, FieldRule{Name: item.Value, Boost: DefaultBoost})
			case yaml.MappingNode:
				parsed, err := decodeRuleMapping(item)
				if err != nil {
					return err
				}
				rules = append(rules, parsed...)
			default:
				return fmt.Errorf("line %d: field rule must be a name or a mapping", item.Line)
			}
		}
	case yaml.MappingNode:
		parsed, err := decodeRuleMapping(node)
		if err != nil {
			return err
		}
		rules = parsed
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			rules = FieldRules{{Name: node.Value, Boost: DefaultBoost}}
		}
	default:
		return fmt.Errorf("line %d: fields must be a sequence or a mapping", node.Line)
	}

	*r = rules
	return nil
}

func decodeRuleMapping(node *yaml.Node) (FieldRules, error) {
	rules := make(FieldRules, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		boost, err := decodeBoost(node.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		rules = append(rules, FieldRule{Name: name, Boost: boost})
	}
	return rules, nil
}

func decodeBoost(node *yaml.Node) (float64, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			return DefaultBoost, nil
		}
		b, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return 0, fmt.Errorf("line %d: boost %q is not a number", node.Line, node.Value)
		}
		return b, nil
	case yaml.MappingNode:
		var rule struct {
			Boost *float64 `yaml:"boost"`
		}
		if err := node.Decode(&rule); err != nil {
			return 0, err
		}
		if rule.Boost == nil {
			return DefaultBoost, nil
		}
		return *rule.Boost, nil
	}
	return 0, fmt.Errorf("line %d: unsupported field rule", node.Line)
}

// OptionalMode selects how optional attributes are read from an entity.
type OptionalMode int

const (
	// OptionalDisabled turns optional attributes off.
	OptionalDisabled OptionalMode = iota
	// OptionalWhole reads the entity's designated optional_attributes collection.
	OptionalWhole
	// OptionalNamed reads the collection at a configured field path.
	OptionalNamed
)

// String implements fmt.Stringer.
func (m OptionalMode) String() string {
	switch m {
	case OptionalWhole:
		return "whole"
	case OptionalNamed:
		return "named"
	default:
		return "disabled"
	}
}

// OptionalAttributes is the optional-attribute rule of an entity type.
// In YAML it is either a boolean or a mapping with a "field" key.
type OptionalAttributes struct {
	Mode  OptionalMode
	Field string
}

// WholeCollection enables optional attributes read from DefaultOptionalField.
func WholeCollection() OptionalAttributes {
	return OptionalAttributes{Mode: OptionalWhole}
}

// NamedCollection enables optional attributes read from field.
func NamedCollection(field string) OptionalAttributes {
	if field == "" {
		return WholeCollection()
	}
	return OptionalAttributes{Mode: OptionalNamed, Field: field}
}

// Enabled reports whether optional attributes are extracted.
func (o OptionalAttributes) Enabled() bool {
	return o.Mode != OptionalDisabled
}

// FieldName returns the attribute path the collection is read from. It is
// also the prefix used when a sequence is re-keyed.
func (o OptionalAttributes) FieldName() string {
	if o.Mode == OptionalNamed && o.Field != "" {
		return o.Field
	}
	return DefaultOptionalField
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *OptionalAttributes) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*o = OptionalAttributes{}
			return nil
		}
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return fmt.Errorf("line %d: optional_attributes must be a boolean or {field: name}", node.Line)
		}
		if enabled {
			*o = WholeCollection()
		} else {
			*o = OptionalAttributes{}
		}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Field string `yaml:"field"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*o = NamedCollection(raw.Field)
		return nil
	}
	return fmt.Errorf("line %d: optional_attributes must be a boolean or {field: name}", node.Line)
}
