package fields

import (
	"fmt"
	"maps"

	"github.com/jonwraymond/entityindex/entity"
	"github.com/jonwraymond/entityindex/index"
	"github.com/jonwraymond/entityindex/registry"
)

// Fields maps field names to boosted values.
type Fields map[string]index.Field

// Extract reads the declared fields of d from e. A zero boost becomes
// DefaultBoost, any other boost is passed through unchanged. A missing
// attribute yields a nil value.
func Extract(d *registry.Descriptor, e entity.Entity) Fields {
	rules := d.Fields()
	out := make(Fields, len(rules))
	for _, rule := range rules {
		value, _ := entity.ReadNamedPath(e, rule.Name)
		boost := rule.Boost
		if boost == 0 {
			boost = registry.DefaultBoost
		}
		out[rule.Name] = index.Field{Boost: boost, Value: value}
	}
	return out
}

// Extractor resolves descriptors through a registry before extracting.
type Extractor struct {
	reg *registry.Registry
}

// NewExtractor creates an extractor bound to reg.
func NewExtractor(reg *registry.Registry) *Extractor {
	return &Extractor{reg: reg}
}

// Fields extracts the declared fields of e.
func (x *Extractor) Fields(e entity.Entity) (Fields, error) {
	d, err := x.reg.DescriptorFor(e)
	if err != nil {
		return nil, err
	}
	return Extract(d, e), nil
}

// Optional extracts the optional attributes of e.
func (x *Extractor) Optional(e entity.Entity) (Fields, error) {
	d, err := x.reg.DescriptorFor(e)
	if err != nil {
		return nil, err
	}
	return ExtractOptional(d, e), nil
}

// Document builds the indexable document of e. Declared fields take
// precedence over optional attributes with the same name.
func (x *Extractor) Document(e entity.Entity) (index.Document, error) {
	d, err := x.reg.DescriptorFor(e)
	if err != nil {
		return index.Document{}, err
	}
	return DocumentFor(d, e)
}

// DocumentFor builds the indexable document of e using d.
func DocumentFor(d *registry.Descriptor, e entity.Entity) (index.Document, error) {
	raw, _ := entity.ReadNamedPath(e, d.PrimaryKey())
	key := entity.FormatKey(raw)
	if key == "" {
		return index.Document{}, fmt.Errorf("%w: %s.%s", entity.ErrMissingKey, d.Type(), d.PrimaryKey())
	}

	all := ExtractOptional(d, e)
	maps.Copy(all, Extract(d, e))

	return index.Document{
		TypeID: d.TypeID(),
		Key:    key,
		Fields: all,
	}, nil
}
