// Package store exposes SQL tables as entity repositories.
//
// Open connects through database/sql with one of three drivers:
//
//   - "sqlite": modernc.org/sqlite, pure Go
//   - "sqlite3": github.com/mattn/go-sqlite3, cgo
//   - "pgx": github.com/jackc/pgx/v5 through its stdlib adapter
//
// A Table maps one table to one entity type. Rows are read as
// entity.Record values keyed by column name:
//
//	db, err := store.Open(ctx, "sqlite", "app.db")
//	posts, err := store.NewTable(db, store.TableConfig{
//	    EntityType:      "posts",
//	    Table:           "posts",
//	    SearchableWhere: "status = 'published'",
//	})
//	repo := posts.Repository() // registry.EntityConfig.Repository
//
// SearchableWhere is trusted SQL from the operator's configuration. Table,
// column and key names are validated as plain identifiers and quoted.
package store
