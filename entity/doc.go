// Package entity defines the records that can be indexed and the
// system-of-record contracts the rest of the module reads them through.
//
// An entity is anything that reports its type name. Attribute access is
// generic: ReadNamedPath walks AttributeReader implementations, maps,
// structs (honouring `search` and `json` tags), pointers and slices, and
// reports an absent value instead of failing when a path does not exist.
//
// Repositories expose the system of record for one entity type:
//
//	repo := entity.NewMemoryRepository("posts", "id")
//	repo.Put(entity.NewRecord("posts", map[string]any{"id": 1, "title": "Hello"}))
//
//	keys, _ := repo.ListAllPrimaryKeys(ctx)
//
// A repository may additionally implement SearchableIDProvider to narrow the
// set of primary keys that are eligible to appear in search results, Loader
// to hydrate full entities, and Iterator to stream every row for a rebuild.
package entity
