package server

import (
	"math"

	"github.com/jonwraymond/entityindex/engine"
	"github.com/jonwraymond/entityindex/lifecycle"
)

// Hit is the wire form of a resolved search result.
type Hit struct {
	Type      string              `json:"type"`
	TypeID    string              `json:"type_id"`
	Key       string              `json:"key"`
	Score     float64             `json:"score"`
	Fragments map[string][]string `json:"fragments,omitempty"`
}

// SearchResponse is one page of resolved results.
type SearchResponse struct {
	Total   uint64 `json:"total"`
	Results []Hit  `json:"results"`
}

// RebuildResponse summarizes a rebuild.
type RebuildResponse struct {
	Documents  map[string]int `json:"documents"`
	Skipped    map[string]int `json:"skipped,omitempty"`
	Total      int            `json:"total"`
	DurationMS int64          `json:"duration_ms"`
}

func toSearchResponse(results engine.Results, total uint64) SearchResponse {
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			Type:      r.Type,
			TypeID:    r.TypeID,
			Key:       r.Key,
			Score:     finiteScore(r.Score),
			Fragments: r.Fragments,
		})
	}
	return SearchResponse{Total: total, Results: hits}
}

// finiteScore maps NaN and infinite scores to 0; JSON cannot carry them.
func finiteScore(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

func toRebuildResponse(stats lifecycle.Stats) RebuildResponse {
	docs := stats.Documents
	if docs == nil {
		docs = map[string]int{}
	}
	return RebuildResponse{
		Documents:  docs,
		Skipped:    stats.Skipped,
		Total:      stats.Total(),
		DurationMS: stats.Duration.Milliseconds(),
	}
}
