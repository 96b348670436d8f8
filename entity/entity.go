package entity

import (
	"maps"
	"slices"
)

// Entity is a unit of data from the system of record.
type Entity interface {
	// EntityType returns the registered type name, e.g. "posts".
	EntityType() string
}

// AttributeReader is implemented by entities that resolve their own attributes.
type AttributeReader interface {
	Attribute(name string) (any, bool)
}

// AttributeWriter is implemented by entities whose attributes can be set by name.
type AttributeWriter interface {
	SetAttribute(name string, value any)
}

// Searchable lets an entity opt out of the index. Entities that do not
// implement it are always searchable.
type Searchable interface {
	IsSearchable() bool
}

// Record is a map-backed entity.
type Record struct {
	Type  string
	Attrs map[string]any
}

// NewRecord creates a record of the given type. The attribute map is copied.
func NewRecord(entityType string, attrs map[string]any) *Record {
	r := &Record{Type: entityType, Attrs: make(map[string]any, len(attrs))}
	maps.Copy(r.Attrs, attrs)
	return r
}

// EntityType implements Entity.
func (r *Record) EntityType() string { return r.Type }

// Attribute implements AttributeReader.
func (r *Record) Attribute(name string) (any, bool) {
	if r.Attrs == nil {
		return nil, false
	}
	v, ok := r.Attrs[name]
	return v, ok
}

// SetAttribute implements AttributeWriter.
func (r *Record) SetAttribute(name string, value any) {
	if r.Attrs == nil {
		r.Attrs = make(map[string]any)
	}
	r.Attrs[name] = value
}

// Names returns the attribute names in sorted order.
func (r *Record) Names() []string {
	return slices.Sorted(maps.Keys(r.Attrs))
}

// IsSearchable reports false when the record carries a boolean
// "searchable" attribute set to false.
func (r *Record) IsSearchable() bool {
	v, ok := r.Attrs["searchable"]
	if !ok {
		return true
	}
	b, isBool := v.(bool)
	return !isBool || b
}
