// Package search builds bleve queries for entity documents and runs them
// against an index.Index.
//
// # Usage
//
//	s := search.NewSearcher(idx, reg, search.Config{})
//	res, err := s.Search(ctx, search.Request{
//	    Query:  "golang",
//	    Types:  []string{"posts"},
//	    Where:  []search.Filter{{Field: "status", Value: "published"}},
//	    Limit:  20,
//	})
//
// # Behavior
//
// Without Fields, the text is matched against every boost bucket the index
// has written, each with its own boost, so declared and optional fields
// score with the weights they were indexed with. With Fields, each named
// field is matched with the largest boost any entity type declares for it.
//
// Empty text matches every document, which together with Types and Where
// lists entities. Hits are ordered by score, then by document id.
//
// Phrase requests match the words in order; Fuzziness allows that many
// edits per term. Types restrict hits to the named entity types and fail
// with registry.ErrConfiguration for unknown names.
package search
