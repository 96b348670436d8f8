// Package lifecycle keeps the index in step with the system of record.
//
// An Observer is called by the hosting application after an entity is
// saved or deleted:
//
//	obs := lifecycle.NewObserver(reg, idx)
//	if err := obs.Saved(ctx, post); err != nil { ... }
//	if err := obs.Deleted(ctx, post); err != nil { ... }
//
// Saving an entity that reports IsSearchable() == false removes it from
// the index instead.
//
// Bulk imports suspend syncing for a context and rebuild afterwards:
//
//	ctx := lifecycle.WithoutSyncing(ctx)
//	importEverything(ctx) // Observer calls are no-ops
//	stats, err := lifecycle.NewRebuilder(reg, idx).Rebuild(ctx)
//
// A Rebuilder clears the index and re-extracts every entity of every
// registered type, types in parallel. Repositories are read through
// entity.Iterator, or through ListAllPrimaryKeys and entity.Loader when
// they do not stream.
package lifecycle
