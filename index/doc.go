// Package index persists entity documents in a bleve full-text index and
// queries them back as raw hits.
//
// # Documents
//
// A Document carries the entity's type id, its primary key and a map of
// fields, each with a value and a boost. Documents are stored under the id
// "<type id>:<primary key>", so an upsert replaces the previous version of
// the same entity and a delete needs nothing but the type id and key.
//
// Two keyword fields are written with every document:
//
//   - class_uid: the type id
//   - primary_key: the primary key
//
// # Boosts
//
// bleve has no per-document field boosts, so every value is also appended
// to a bucket field named after its boost ("boosted_2", "boosted_0_5").
// The set of buckets is persisted inside the index; searchers query each
// bucket with the matching boost:
//
//	for _, b := range idx.BoostFields() {
//	    q := bleve.NewMatchQuery(text)
//	    q.SetField(b.Field)
//	    q.SetBoost(b.Boost)
//	}
//
// # Usage
//
//	idx, err := index.Open(ctx, "") // in memory
//	defer idx.Close()
//
//	err = idx.Upsert(ctx, index.Document{
//	    TypeID: "a1b2",
//	    Key:    "7",
//	    Fields: map[string]index.Field{"title": {Boost: 2, Value: "Hello"}},
//	})
//
//	page, err := idx.Search(ctx, q, index.SearchOptions{Size: 10})
//
// On-disk indexes take an exclusive lock file next to the index directory
// so that two processes never open the same index.
//
// # Change Notifications
//
//	unsub := idx.OnChange(func(ev index.ChangeEvent) {
//	    // ev.Type is ChangeUpserted, ChangeDeleted or ChangeCleared
//	})
//	defer unsub()
package index
