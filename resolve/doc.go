// Package resolve turns raw index hits back into entity references.
//
// A Reference carries a fresh instance of the hit's entity type with only
// its primary key set; callers load full state separately (see
// entity.Loader).
//
// References filters hits against the authoritative searchable id set of
// each entity type that appears among them. The set comes from the
// repository's SearchableIDs when it implements entity.SearchableIDProvider,
// and from ListAllPrimaryKeys otherwise. Hits outside the set are stale
// index entries and are dropped without error. Hits whose type id is not
// registered fail the whole call with registry.ErrConfiguration.
//
// Resolving the id set can read a whole table. WithSearchableIDCache keeps
// recent sets in an expiring LRU; Invalidate and Purge drop them when the
// index or the system of record changes.
package resolve
