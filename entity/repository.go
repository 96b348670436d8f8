package entity

import "context"

// Repository is the system of record for one entity type.
type Repository interface {
	// EntityType returns the type name of the entities this repository holds.
	EntityType() string
	// NewInstance returns an empty entity of the repository's type.
	NewInstance() Entity
	// ListAllPrimaryKeys returns every primary key currently stored.
	ListAllPrimaryKeys(ctx context.Context) ([]string, error)
}

// SearchableIDProvider narrows the primary keys eligible to appear in
// search results. Repositories that do not implement it fall back to
// ListAllPrimaryKeys.
type SearchableIDProvider interface {
	SearchableIDs(ctx context.Context) ([]string, error)
}

// Loader hydrates full entities by primary key. Missing keys are skipped;
// results follow the order of keys.
type Loader interface {
	Find(ctx context.Context, keys []string) ([]Entity, error)
}

// Iterator streams every entity in the repository. Returning an error from
// fn stops the iteration and is returned by Each.
type Iterator interface {
	Each(ctx context.Context, fn func(Entity) error) error
}
