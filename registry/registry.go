package registry

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/jonwraymond/entityindex/entity"
	"github.com/jonwraymond/entityindex/index"
)

// Config configures a Registry.
type Config struct {
	// Entities lists the indexable entity types in registration order.
	Entities []EntityConfig
}

// EntityConfig declares how one entity type is indexed.
type EntityConfig struct {
	// Name is the entity type name reported by Entity.EntityType.
	Name string
	// Repository is the system of record for the type. Required.
	Repository entity.Repository
	// Fields are the declared, boosted fields.
	Fields FieldRules
	// OptionalAttributes enables dynamically named attributes.
	OptionalAttributes OptionalAttributes
	// PrimaryKey is the primary-key attribute. Default: "id".
	PrimaryKey string
}

// Registry maps entity types to their descriptors. It is immutable once
// built and safe for concurrent use without locking.
type Registry struct {
	descriptors []*Descriptor
	byTypeID    map[string]*Descriptor
	byType      map[string]*Descriptor
	typeID      TypeIDFunc
}

// New validates cfg and builds a registry.
func New(cfg Config, opts ...Option) (*Registry, error) {
	o := options{typeID: DefaultTypeID, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if len(cfg.Entities) == 0 {
		return nil, ErrEmptyConfig
	}

	r := &Registry{
		descriptors: make([]*Descriptor, 0, len(cfg.Entities)),
		byTypeID:    make(map[string]*Descriptor, len(cfg.Entities)),
		byType:      make(map[string]*Descriptor, len(cfg.Entities)),
		typeID:      o.typeID,
	}

	for _, ec := range cfg.Entities {
		d, err := newDescriptor(ec, o)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byType[d.entityType]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateType, d.entityType)
		}
		if other, dup := r.byTypeID[d.typeID]; dup {
			return nil, fmt.Errorf("%w: %q and %q share type id %q", ErrDuplicateType, other.entityType, d.entityType, d.typeID)
		}
		r.descriptors = append(r.descriptors, d)
		r.byTypeID[d.typeID] = d
		r.byType[d.entityType] = d
	}

	return r, nil
}

func newDescriptor(ec EntityConfig, o options) (*Descriptor, error) {
	if strings.TrimSpace(ec.Name) == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidType)
	}
	if len(ec.Fields) == 0 && !ec.OptionalAttributes.Enabled() {
		return nil, fmt.Errorf("%w: %q", ErrNoFieldsOrAttributes, ec.Name)
	}
	if ec.Repository == nil {
		return nil, fmt.Errorf("%w: %q has no repository", ErrInvalidType, ec.Name)
	}
	if rt := ec.Repository.EntityType(); rt != ec.Name {
		return nil, fmt.Errorf("%w: %q repository holds %q", ErrInvalidType, ec.Name, rt)
	}

	typeID := o.typeID(ec.Name)
	if typeID == "" || strings.Contains(typeID, index.IDSeparator) {
		return nil, fmt.Errorf("%w: %q resolved to type id %q", ErrInvalidType, ec.Name, typeID)
	}

	pk := ec.PrimaryKey
	if pk == "" {
		pk = "id"
	}

	fields := make(FieldRules, 0, len(ec.Fields))
	seen := make(map[string]struct{}, len(ec.Fields))
	for _, f := range ec.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: %q has an unnamed field", ErrInvalidType, ec.Name)
		}
		if index.IsReservedField(f.Name) {
			return nil, fmt.Errorf("%w: %q.%s", ErrReservedField, ec.Name, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}

		if f.Boost == 0 {
			f.Boost = DefaultBoost
		}
		if f.Boost < 0 || math.IsNaN(f.Boost) || math.IsInf(f.Boost, 0) {
			if o.strictBoosts {
				return nil, fmt.Errorf("%w: %q.%s = %v", ErrInvalidBoost, ec.Name, f.Name, f.Boost)
			}
			o.logger.Warn("non_positive_boost",
				zap.String("entity", ec.Name),
				zap.String("field", f.Name),
				zap.Float64("boost", f.Boost))
		}
		fields = append(fields, f)
	}

	return &Descriptor{
		typeID:     typeID,
		entityType: ec.Name,
		primaryKey: pk,
		fields:     fields,
		optional:   ec.OptionalAttributes,
		repo:       ec.Repository,
	}, nil
}

// TypeID returns the type id an entity resolves to. It does not check
// registration.
func (r *Registry) TypeID(e entity.Entity) string {
	return r.typeID(e.EntityType())
}

// DescriptorFor returns the descriptor of e's type.
func (r *Registry) DescriptorFor(e entity.Entity) (*Descriptor, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil entity", ErrUnknownEntity)
	}
	d, ok := r.byTypeID[r.TypeID(e)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, e.EntityType())
	}
	return d, nil
}

// DescriptorForTypeID returns the descriptor registered under id.
func (r *Registry) DescriptorForTypeID(id string) (*Descriptor, error) {
	d, ok := r.byTypeID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTypeID, id)
	}
	return d, nil
}

// DescriptorForType returns the descriptor of the named entity type.
func (r *Registry) DescriptorForType(name string) (*Descriptor, error) {
	d, ok := r.byType[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	return d, nil
}

// Descriptors returns all descriptors in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// AllRepositories returns one repository per registered type, in
// registration order. Collaborators use it to bulk-reindex.
func (r *Registry) AllRepositories() []entity.Repository {
	out := make([]entity.Repository, len(r.descriptors))
	for i, d := range r.descriptors {
		out[i] = d.repo
	}
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int { return len(r.descriptors) }

// Boost returns the largest boost declared for field across all types, or
// DefaultBoost when no type declares it.
func (r *Registry) Boost(field string) float64 {
	best, found := 0.0, false
	for _, d := range r.descriptors {
		if f, ok := d.Field(field); ok && (!found || f.Boost > best) {
			best, found = f.Boost, true
		}
	}
	if !found {
		return DefaultBoost
	}
	return best
}
