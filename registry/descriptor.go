package registry

import (
	"slices"

	"github.com/jonwraymond/entityindex/entity"
)

// Descriptor is the immutable indexing rule set of one entity type.
type Descriptor struct {
	typeID     string
	entityType string
	primaryKey string
	fields     FieldRules
	optional   OptionalAttributes
	repo       entity.Repository
}

// TypeID returns the opaque type identifier stored with every indexed document.
func (d *Descriptor) TypeID() string { return d.typeID }

// Type returns the entity type name.
func (d *Descriptor) Type() string { return d.entityType }

// PrimaryKey returns the name of the primary-key attribute.
func (d *Descriptor) PrimaryKey() string { return d.primaryKey }

// Fields returns a copy of the declared field rules in order.
func (d *Descriptor) Fields() FieldRules { return slices.Clone(d.fields) }

// Field returns the rule for a declared field.
func (d *Descriptor) Field(name string) (FieldRule, bool) {
	for _, f := range d.fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldRule{}, false
}

// OptionalAttributes returns the optional-attribute rule.
func (d *Descriptor) OptionalAttributes() OptionalAttributes { return d.optional }

// Repository returns the system-of-record repository of the type.
func (d *Descriptor) Repository() entity.Repository { return d.repo }
