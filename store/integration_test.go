package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/entityindex/engine"
	"github.com/jonwraymond/entityindex/registry"
	"github.com/jonwraymond/entityindex/search"
	"github.com/jonwraymond/entityindex/store"
)

func TestSQLiteRebuildAndSearch(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(ctx, store.DriverSQLite, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(ctx, `CREATE TABLE articles (id INTEGER PRIMARY KEY, title TEXT, status TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO articles (id, title, status) VALUES
		(1, 'sqlite tips', 'published'),
		(2, 'sqlite internals', 'draft'),
		(3, 'bleve and sqlite', 'published')`)
	require.NoError(t, err)

	tbl, err := store.NewTable(db, store.TableConfig{
		EntityType:      "articles",
		Table:           "articles",
		SearchableWhere: "status = 'published'",
	})
	require.NoError(t, err)

	reg, err := registry.New(registry.Config{Entities: []registry.EntityConfig{{
		Name:       "articles",
		Repository: tbl.Repository(),
		Fields:     registry.FieldRules{{Name: "title", Boost: 1}},
	}}})
	require.NoError(t, err)

	eng, err := engine.New(ctx, engine.Options{Registry: reg})
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	stats, err := eng.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Documents["articles"])

	results, err := eng.Search(ctx, search.Request{Query: "sqlite"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "3"}, results.Keys())

	loaded, err := eng.Load(ctx, results)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}
