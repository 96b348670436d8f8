package engine

import (
	"github.com/jonwraymond/entityindex/entity"
	"github.com/jonwraymond/entityindex/resolve"
)

// Result is a resolved search hit.
type Result struct {
	resolve.Reference

	// Fragments holds highlighted snippets per field when requested.
	Fragments map[string][]string
}

// Results is a slice of Result with helper methods.
type Results []Result

// Keys returns the primary keys of the results.
func (r Results) Keys() []string {
	keys := make([]string, len(r))
	for i, result := range r {
		keys[i] = result.Key
	}
	return keys
}

// Entities returns the reference entities of the results.
func (r Results) Entities() []entity.Entity {
	out := make([]entity.Entity, len(r))
	for i, result := range r {
		out[i] = result.Entity
	}
	return out
}

// FilterByType returns results of the named entity type.
func (r Results) FilterByType(name string) Results {
	var filtered Results
	for _, result := range r {
		if result.Type == name {
			filtered = append(filtered, result)
		}
	}
	return filtered
}

// FilterByMinScore returns results with score >= minScore.
func (r Results) FilterByMinScore(minScore float64) Results {
	var filtered Results
	for _, result := range r {
		if result.Score >= minScore {
			filtered = append(filtered, result)
		}
	}
	return filtered
}
