// Package engine is the entry point for indexing and searching entities.
//
// It wires the registry, a bleve index, the searcher, the hit resolver and
// the lifecycle hooks into a single value with one lifetime, so hosting
// applications pass an *Engine around instead of reaching for globals.
//
// # Basic Usage
//
//	eng, err := engine.New(ctx, engine.Options{Registry: reg})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	// Keep the index in step with the system of record
//	obs := eng.Observer()
//	_ = obs.Saved(ctx, post)
//
//	// Search and resolve
//	results, err := eng.Search(ctx, search.Request{Query: "golang"})
//	posts, err := eng.Load(ctx, results)
//
// # Persistent Indexes
//
// With IndexPath set, the index lives on disk and survives restarts. Stale
// reports whether the registry changed since the last Rebuild:
//
//	if stale, _ := eng.Stale(); stale {
//	    _, err = eng.Rebuild(ctx)
//	}
//
// # Components
//
// The Engine integrates:
//   - registry.Registry: entity type descriptors
//   - index.Index: bleve storage of entity documents
//   - search.Searcher: query building
//   - resolve.Resolver: hits to references, stale hit filtering
//   - lifecycle.Observer and lifecycle.Rebuilder: writes
//
// # Thread Safety
//
// All Engine methods are safe for concurrent use.
package engine
