package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/jonwraymond/entityindex/entity"
	"github.com/jonwraymond/entityindex/index"
	"github.com/jonwraymond/entityindex/metrics"
	"github.com/jonwraymond/entityindex/registry"
)

// ErrReference is returned when a reference instance cannot be built.
var ErrReference = errors.New("cannot build entity reference")

// Reference is a minimal entity rebuilt from a hit.
type Reference struct {
	// Entity is a new instance of the hit's type with only the primary key
	// set. The key is the canonical string form: a Record holds it as a
	// string, a struct field gets it converted to the field's type.
	Entity entity.Entity
	TypeID string
	Type   string
	Key    string
	// Score is informational.
	Score float64
}

// IDSet is a set of primary keys.
type IDSet map[string]struct{}

// Has reports whether key is in the set.
func (s IDSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSearchableIDCache caches up to size searchable id sets for ttl.
// A ttl <= 0 keeps entries until they are evicted or invalidated.
func WithSearchableIDCache(size int, ttl time.Duration) Option {
	return func(r *Resolver) {
		if size > 0 {
			r.cache = expirable.NewLRU[string, IDSet](size, nil, ttl)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver maps hits to references. It is safe for concurrent use.
type Resolver struct {
	reg    *registry.Registry
	cache  *expirable.LRU[string, IDSet]
	logger *zap.Logger
}

// New creates a resolver over reg.
func New(reg *registry.Registry, opts ...Option) *Resolver {
	r := &Resolver{reg: reg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reference rebuilds the entity reference of a single hit without any
// searchable-set filtering.
func (r *Resolver) Reference(hit index.Hit) (Reference, error) {
	d, err := r.reg.DescriptorForTypeID(hit.TypeID)
	if err != nil {
		return Reference{}, err
	}
	return reference(d, hit)
}

func reference(d *registry.Descriptor, hit index.Hit) (Reference, error) {
	e := d.Repository().NewInstance()
	if e == nil {
		return Reference{}, fmt.Errorf("%w: %s repository returned a nil instance", ErrReference, d.Type())
	}
	if err := entity.SetAttribute(e, d.PrimaryKey(), hit.Key); err != nil {
		return Reference{}, fmt.Errorf("%w: %s: %w", ErrReference, d.Type(), err)
	}
	return Reference{
		Entity: e,
		TypeID: d.TypeID(),
		Type:   d.Type(),
		Key:    hit.Key,
		Score:  hit.Score,
	}, nil
}

// References rebuilds references for hits, keeping only hits whose key is
// in their type's searchable id set. The result follows the order of hits.
func (r *Resolver) References(ctx context.Context, hits []index.Hit) ([]Reference, error) {
	descriptors := make(map[string]*registry.Descriptor)
	for _, hit := range hits {
		if _, ok := descriptors[hit.TypeID]; ok {
			continue
		}
		d, err := r.reg.DescriptorForTypeID(hit.TypeID)
		if err != nil {
			return nil, err
		}
		descriptors[hit.TypeID] = d
	}

	sets := make(map[string]IDSet, len(descriptors))
	for _, hit := range hits {
		if _, ok := sets[hit.TypeID]; ok {
			continue
		}
		set, err := r.SearchableIDs(ctx, descriptors[hit.TypeID])
		if err != nil {
			return nil, err
		}
		sets[hit.TypeID] = set
	}

	refs := make([]Reference, 0, len(hits))
	for _, hit := range hits {
		d := descriptors[hit.TypeID]
		if !sets[hit.TypeID].Has(hit.Key) {
			metrics.StaleHitsDroppedTotal.WithLabelValues(d.Type()).Inc()
			r.logger.Debug("stale_hit_dropped",
				zap.String("type", d.Type()),
				zap.String("key", hit.Key),
			)
			continue
		}
		ref, err := reference(d, hit)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// SearchableIDs returns the searchable id set of d's entity type.
func (r *Resolver) SearchableIDs(ctx context.Context, d *registry.Descriptor) (IDSet, error) {
	if r.cache != nil {
		if set, ok := r.cache.Get(d.TypeID()); ok {
			metrics.SearchableIDLookupsTotal.WithLabelValues(d.Type(), "cache").Inc()
			return set, nil
		}
	}

	var (
		keys   []string
		err    error
		source string
	)
	repo := d.Repository()
	if p, ok := repo.(entity.SearchableIDProvider); ok {
		source = "provider"
		keys, err = p.SearchableIDs(ctx)
	} else {
		source = "primary_keys"
		keys, err = repo.ListAllPrimaryKeys(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load searchable ids of %s: %w", d.Type(), err)
	}
	metrics.SearchableIDLookupsTotal.WithLabelValues(d.Type(), source).Inc()

	set := make(IDSet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	if r.cache != nil {
		r.cache.Add(d.TypeID(), set)
	}
	return set, nil
}

// Invalidate drops the cached id set of a type id.
func (r *Resolver) Invalidate(typeID string) {
	if r.cache != nil {
		r.cache.Remove(typeID)
	}
}

// Purge drops every cached id set.
func (r *Resolver) Purge() {
	if r.cache != nil {
		r.cache.Purge()
	}
}
