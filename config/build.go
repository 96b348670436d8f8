package config

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonwraymond/entityindex/engine"
	"github.com/jonwraymond/entityindex/registry"
	"github.com/jonwraymond/entityindex/search"
	"github.com/jonwraymond/entityindex/store"
)

// OpenDatabase connects to the configured system of record.
func (c *Config) OpenDatabase(ctx context.Context) (*sql.DB, error) {
	return store.Open(ctx, c.Database.Driver, c.Database.DSN)
}

// BuildRegistry maps every configured entity to a table of db and builds
// the registry.
func (c *Config) BuildRegistry(db *sql.DB, logger *zap.Logger) (*registry.Registry, error) {
	rc := registry.Config{Entities: make([]registry.EntityConfig, 0, len(c.Entities))}
	for _, e := range c.Entities {
		tbl, err := store.NewTable(db, store.TableConfig{
			EntityType:      e.Name,
			Table:           e.Table,
			PrimaryKey:      e.PrimaryKey,
			Columns:         e.Columns,
			JSONColumns:     e.JSONColumns,
			SearchableWhere: e.SearchableWhere,
			Placeholder:     store.PlaceholderFor(c.Database.Driver),
		})
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", e.Name, err)
		}
		rc.Entities = append(rc.Entities, registry.EntityConfig{
			Name:               e.Name,
			Repository:         tbl.Repository(),
			Fields:             e.Fields,
			OptionalAttributes: e.OptionalAttributes,
			PrimaryKey:         e.PrimaryKey,
		})
	}

	opts := append(c.RegistryOptions(), registry.WithLogger(logger))
	return registry.New(rc, opts...)
}

// EngineOptions returns engine options for reg.
func (c *Config) EngineOptions(reg *registry.Registry, logger *zap.Logger) engine.Options {
	return engine.Options{
		Registry:    reg,
		IndexPath:   c.Index.Path,
		LockTimeout: c.Index.LockTimeout,
		Search: search.Config{
			DefaultLimit: c.Search.DefaultLimit,
			MaxLimit:     c.Search.MaxLimit,
		},
		SearchableIDCacheSize: c.Resolver.CacheSize,
		SearchableIDCacheTTL:  c.Resolver.CacheTTL,
		BatchSize:             c.Index.BatchSize,
		Parallelism:           c.Index.Parallelism,
		Logger:                logger,
	}
}
