package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonwraymond/entityindex/engine"
	"github.com/jonwraymond/entityindex/registry"
	"github.com/jonwraymond/entityindex/search"
)

const sample = `
logging:
  env: ${EI_TEST_ENV:-dev}
  level: debug
index:
  path: ${EI_TEST_INDEX}
  lock_timeout: 2s
database:
  driver: sqlite
  dsn: ${EI_TEST_DSN:-app.db}
resolver:
  cache_size: 16
  cache_ttl: 1m
entities:
  posts:
    fields:
      - title: {boost: 2}
      - body
    searchable_where: status = 'published'
  users:
    table: people
    primary_key: uid
    fields:
      name: {}
    optional_attributes: {field: profile}
    json_columns: [profile]
  tags:
    optional_attributes: true
`

func TestParse(t *testing.T) {
	t.Setenv("EI_TEST_INDEX", "/var/lib/entityindex")

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Logging.Env)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/var/lib/entityindex", cfg.Index.Path)
	assert.Equal(t, 2*time.Second, cfg.Index.LockTimeout)
	assert.Equal(t, "app.db", cfg.Database.DSN)
	assert.Equal(t, 16, cfg.Resolver.CacheSize)
	assert.Equal(t, time.Minute, cfg.Resolver.CacheTTL)

	assert.Equal(t, []string{"posts", "users", "tags"}, cfg.Entities.Names())

	posts := cfg.Entities[0]
	assert.Equal(t, "posts", posts.Table)
	assert.Equal(t, "id", posts.PrimaryKey)
	assert.Equal(t, registry.FieldRules{{Name: "title", Boost: 2}, {Name: "body", Boost: 1}}, posts.Fields)
	assert.Equal(t, "status = 'published'", posts.SearchableWhere)
	assert.False(t, posts.OptionalAttributes.Enabled())

	users := cfg.Entities[1]
	assert.Equal(t, "people", users.Table)
	assert.Equal(t, "uid", users.PrimaryKey)
	assert.Equal(t, registry.FieldRules{{Name: "name", Boost: 1}}, users.Fields)
	assert.Equal(t, registry.NamedCollection("profile"), users.OptionalAttributes)
	assert.Equal(t, []string{"profile"}, users.JSONColumns)

	assert.Equal(t, registry.WholeCollection(), cfg.Entities[2].OptionalAttributes)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`
database: {dsn: ":memory:"}
entities:
  posts: {fields: [title]}
`))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Logging.Env)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "", cfg.Index.Path)
	assert.Equal(t, 5*time.Second, cfg.Index.LockTimeout)
	assert.Equal(t, 500, cfg.Index.BatchSize)
	assert.Equal(t, 4, cfg.Index.Parallelism)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 1000, cfg.Search.MaxLimit)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Zero(t, cfg.Resolver.CacheSize)
	assert.Empty(t, cfg.RegistryOptions())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no entities", `database: {dsn: x}`},
		{"empty entities", "database: {dsn: x}\nentities: {}"},
		{"no dsn", "entities:\n  posts: {fields: [title]}"},
		{"bad driver", "database: {driver: oracle, dsn: x}\nentities:\n  posts: {fields: [title]}"},
		{"bad env", "logging: {env: staging}\ndatabase: {dsn: x}\nentities:\n  posts: {fields: [title]}"},
		{"neither fields nor attributes", "database: {dsn: x}\nentities:\n  posts: {table: posts}"},
		{"limits", "search: {default_limit: 50, max_limit: 20}\ndatabase: {dsn: x}\nentities:\n  posts: {fields: [title]}"},
		{"negative cache", "resolver: {cache_size: -1}\ndatabase: {dsn: x}\nentities:\n  posts: {fields: [title]}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []string{
		"entities: [posts, users]",
		"entities:\n  posts: {fields: [title]}\n  posts: {fields: [body]}",
		"entities:\n  posts: {fields: {title: {boost: high}}}",
		"entities:\n  posts: {optional_attributes: maybe}",
	}
	for _, y := range tests {
		_, err := Parse([]byte("database: {dsn: x}\n" + y))
		assert.Error(t, err, y)
		assert.NotErrorIs(t, err, ErrInvalidConfig, y)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entityindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Entities, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("EI_SET", "value")
	t.Setenv("EI_EMPTY", "")

	got := string(expandEnvVars([]byte("a=${EI_SET} b=${EI_EMPTY:-fallback} c=${EI_UNSET_VAR} d=${EI_SET:-x}")))
	assert.Equal(t, "a=value b=fallback c= d=value", got)
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	cfg, err := Parse([]byte(`
database:
  dsn: ` + filepath.Join(t.TempDir(), "app.db") + `
registry:
  strict_boosts: true
resolver:
  cache_size: 4
entities:
  posts:
    fields: [title]
    searchable_where: status = 'published'
`))
	require.NoError(t, err)
	assert.Len(t, cfg.RegistryOptions(), 1)

	db, err := cfg.OpenDatabase(ctx)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, `CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT, status TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO posts VALUES (1, 'config driven', 'published'), (2, 'config draft', 'draft')`)
	require.NoError(t, err)

	reg, err := cfg.BuildRegistry(db, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	opts := cfg.EngineOptions(reg, zap.NewNop())
	assert.Equal(t, 4, opts.SearchableIDCacheSize)
	assert.Equal(t, 1000, opts.Search.MaxLimit)

	eng, err := engine.New(ctx, opts)
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	_, err = eng.Rebuild(ctx)
	require.NoError(t, err)
	results, err := eng.Search(ctx, search.Request{Query: "config"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, results.Keys())
}

func TestBuild_StrictBoosts(t *testing.T) {
	cfg, err := Parse([]byte(`
database: {dsn: ":memory:"}
registry: {strict_boosts: true}
entities:
  posts:
    fields: {title: -1}
`))
	require.NoError(t, err)

	db, err := cfg.OpenDatabase(context.Background())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = cfg.BuildRegistry(db, zap.NewNop())
	assert.ErrorIs(t, err, registry.ErrConfiguration)
}

func TestBuild_InvalidTable(t *testing.T) {
	cfg, err := Parse([]byte(`
database: {dsn: ":memory:"}
entities:
  posts:
    table: "posts; drop"
    fields: [title]
`))
	require.NoError(t, err)

	db, err := cfg.OpenDatabase(context.Background())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = cfg.BuildRegistry(db, zap.NewNop())
	assert.Error(t, err)
}
