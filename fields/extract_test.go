package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/entityindex/entity"
	"github.com/jonwraymond/entityindex/index"
	"github.com/jonwraymond/entityindex/registry"
)

func newDescriptor(t *testing.T, cfg registry.EntityConfig) *registry.Descriptor {
	t.Helper()
	if cfg.Repository == nil {
		cfg.Repository = entity.NewMemoryRepository(cfg.Name, cfg.PrimaryKey)
	}
	reg, err := registry.New(registry.Config{Entities: []registry.EntityConfig{cfg}})
	require.NoError(t, err)
	d, err := reg.DescriptorForType(cfg.Name)
	require.NoError(t, err)
	return d
}

func TestExtract_BoostsAndValues(t *testing.T) {
	d := newDescriptor(t, registry.EntityConfig{
		Name: "posts",
		Fields: registry.FieldRules{
			{Name: "title", Boost: registry.DefaultBoost},
			{Name: "body", Boost: 5},
			{Name: "missing", Boost: 1},
		},
	})
	post := entity.NewRecord("posts", map[string]any{"id": 1, "title": "Hello", "body": "World"})

	got := Extract(d, post)
	assert.Equal(t, Fields{
		"title":   {Boost: 1, Value: "Hello"},
		"body":    {Boost: 5, Value: "World"},
		"missing": {Boost: 1, Value: nil},
	}, got)
}

func TestExtract_BareRuleDefaultsBoost(t *testing.T) {
	d := newDescriptor(t, registry.EntityConfig{
		Name:   "items",
		Fields: registry.FieldRules{{Name: "name"}},
	})
	got := Extract(d, entity.NewRecord("items", map[string]any{"id": 7, "name": "x"}))
	assert.Equal(t, Fields{"name": {Boost: registry.DefaultBoost, Value: "x"}}, got)
}

func TestExtract_PermissiveBoost(t *testing.T) {
	d := newDescriptor(t, registry.EntityConfig{
		Name:   "posts",
		Fields: registry.FieldRules{{Name: "title", Boost: -2}},
	})
	got := Extract(d, entity.NewRecord("posts", map[string]any{"title": "x"}))
	assert.Equal(t, -2.0, got["title"].Boost)
}

func TestExtract_NameOnlyScenario(t *testing.T) {
	posts := entity.NewMemoryRepository("items", "id")
	reg, err := registry.New(registry.Config{Entities: []registry.EntityConfig{{
		Name:       "items",
		Repository: posts,
		Fields:     registry.FieldRules{{Name: "name", Boost: registry.DefaultBoost}},
		PrimaryKey: "id",
	}}})
	require.NoError(t, err)

	x := NewExtractor(reg)
	got, err := x.Fields(entity.NewRecord("items", map[string]any{"id": 7, "name": "x"}))
	require.NoError(t, err)
	assert.Equal(t, Fields{"name": {Boost: 1, Value: "x"}}, got)
}

func TestExtractor_UnknownEntity(t *testing.T) {
	reg, err := registry.New(registry.Config{Entities: []registry.EntityConfig{{
		Name:       "posts",
		Repository: entity.NewMemoryRepository("posts", "id"),
		Fields:     registry.FieldRules{{Name: "title", Boost: 1}},
	}}})
	require.NoError(t, err)
	x := NewExtractor(reg)

	_, err = x.Fields(entity.NewRecord("users", nil))
	assert.ErrorIs(t, err, registry.ErrConfiguration)
	_, err = x.Optional(entity.NewRecord("users", nil))
	assert.ErrorIs(t, err, registry.ErrConfiguration)
	_, err = x.Document(entity.NewRecord("users", nil))
	assert.ErrorIs(t, err, registry.ErrConfiguration)
}

func TestExtractor_Document(t *testing.T) {
	reg, err := registry.New(registry.Config{Entities: []registry.EntityConfig{{
		Name:               "posts",
		Repository:         entity.NewMemoryRepository("posts", "slug"),
		Fields:             registry.FieldRules{{Name: "title", Boost: 3}},
		OptionalAttributes: registry.NamedCollection("extra"),
		PrimaryKey:         "slug",
	}}})
	require.NoError(t, err)
	x := NewExtractor(reg)

	post := entity.NewRecord("posts", map[string]any{
		"slug":  "hello-world",
		"title": "Hello",
		"extra": map[string]any{"title": "shadowed", "color": "red"},
	})
	doc, err := x.Document(post)
	require.NoError(t, err)

	assert.Equal(t, registry.DefaultTypeID("posts"), doc.TypeID)
	assert.Equal(t, "hello-world", doc.Key)
	assert.Equal(t, map[string]index.Field{
		"title": {Boost: 3, Value: "Hello"},
		"color": {Boost: 1, Value: "red"},
	}, doc.Fields)

	_, err = x.Document(entity.NewRecord("posts", map[string]any{"title": "no key"}))
	assert.ErrorIs(t, err, entity.ErrMissingKey)
}

type product struct {
	ID    int            `json:"id"`
	Name  string         `json:"name"`
	Attrs map[string]any `json:"attrs"`
}

func (p *product) EntityType() string { return "products" }

func TestExtractor_StructEntity(t *testing.T) {
	reg, err := registry.New(registry.Config{Entities: []registry.EntityConfig{{
		Name:               "products",
		Repository:         entity.NewMemoryRepository("products", "id"),
		Fields:             registry.FieldRules{{Name: "name", Boost: 2}},
		OptionalAttributes: registry.NamedCollection("attrs"),
	}}})
	require.NoError(t, err)

	doc, err := NewExtractor(reg).Document(&product{
		ID:    12,
		Name:  "Lamp",
		Attrs: map[string]any{"material": map[string]any{"boost": 4, "value": "brass"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "12", doc.Key)
	assert.Equal(t, index.Field{Boost: 2, Value: "Lamp"}, doc.Fields["name"])
	assert.Equal(t, index.Field{Boost: 4, Value: "brass"}, doc.Fields["material"])
}
