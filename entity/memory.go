package entity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Error values for consistent error handling by callers.
var (
	ErrInvalidEntity = errors.New("invalid entity")
	ErrMissingKey    = errors.New("missing primary key")
)

// MemoryRepository stores entities of one type in memory. It implements
// Repository, Loader and Iterator, and SearchableIDProvider when a
// searchable predicate is configured.
type MemoryRepository struct {
	entityType string
	primaryKey string
	searchable func(Entity) bool

	mu       sync.RWMutex
	entities map[string]Entity
}

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithSearchable restricts SearchableIDs to entities for which fn returns true.
func WithSearchable(fn func(Entity) bool) MemoryOption {
	return func(r *MemoryRepository) {
		r.searchable = fn
	}
}

// NewMemoryRepository creates an empty repository. An empty primaryKey
// defaults to "id".
func NewMemoryRepository(entityType, primaryKey string, opts ...MemoryOption) *MemoryRepository {
	if primaryKey == "" {
		primaryKey = "id"
	}
	r := &MemoryRepository{
		entityType: entityType,
		primaryKey: primaryKey,
		entities:   make(map[string]Entity),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EntityType implements Repository.
func (r *MemoryRepository) EntityType() string { return r.entityType }

// NewInstance implements Repository.
func (r *MemoryRepository) NewInstance() Entity {
	return NewRecord(r.entityType, nil)
}

// Put stores or replaces e and returns its primary key.
func (r *MemoryRepository) Put(e Entity) (string, error) {
	if e == nil || e.EntityType() != r.entityType {
		return "", fmt.Errorf("%w: expected type %q", ErrInvalidEntity, r.entityType)
	}
	raw, ok := ReadNamedPath(e, r.primaryKey)
	key := FormatKey(raw)
	if !ok || key == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, r.primaryKey)
	}

	r.mu.Lock()
	r.entities[key] = e
	r.mu.Unlock()

	return key, nil
}

// Remove deletes the entity with the given key. It reports whether it existed.
func (r *MemoryRepository) Remove(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entities[key]
	delete(r.entities, key)
	return ok
}

// ListAllPrimaryKeys implements Repository. Keys are returned in stable order.
func (r *MemoryRepository) ListAllPrimaryKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	keys := make([]string, 0, len(r.entities))
	for k := range r.entities {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sortKeys(keys)
	return keys, nil
}

// Find implements Loader.
func (r *MemoryRepository) Find(ctx context.Context, keys []string) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entity, 0, len(keys))
	for _, k := range keys {
		if e, ok := r.entities[k]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Each implements Iterator.
func (r *MemoryRepository) Each(ctx context.Context, fn func(Entity) error) error {
	keys, err := r.ListAllPrimaryKeys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.mu.RLock()
		e, ok := r.entities[k]
		r.mu.RUnlock()
		if !ok {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored entities.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// SearchableRepository is a MemoryRepository with a searchable predicate.
type SearchableRepository struct {
	*MemoryRepository
}

// Searchable returns a view of r implementing SearchableIDProvider. It
// returns nil when r has no searchable predicate.
func (r *MemoryRepository) Searchable() *SearchableRepository {
	if r.searchable == nil {
		return nil
	}
	return &SearchableRepository{MemoryRepository: r}
}

// SearchableIDs implements SearchableIDProvider.
func (r *SearchableRepository) SearchableIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	keys := make([]string, 0, len(r.entities))
	for k, e := range r.entities {
		if r.searchable(e) {
			keys = append(keys, k)
		}
	}
	r.mu.RUnlock()

	sortKeys(keys)
	return keys, nil
}

// sortKeys orders numeric keys numerically and everything else lexically.
func sortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if len(a) != len(b) && isDigits(a) && isDigits(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
