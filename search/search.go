package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/jonwraymond/entityindex/index"
	"github.com/jonwraymond/entityindex/registry"
)

// ErrInvalidRequest is returned for requests that cannot be turned into a query.
var ErrInvalidRequest = errors.New("invalid search request")

const (
	defaultLimit = 10
	maxLimit     = 1000
)

// Filter restricts hits to documents whose field contains value as a phrase.
type Filter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Request describes one search.
type Request struct {
	// Query is the user text. Empty matches everything.
	Query string
	// Fields restricts matching to the named fields.
	Fields []string
	// Phrase matches the words of Query in order.
	Phrase bool
	// Fuzziness is the edit distance allowed per term (0 disables).
	Fuzziness int
	// Where adds field filters that every hit must satisfy.
	Where []Filter
	// Types restricts hits to the named entity types.
	Types []string
	// Limit is the page size. Default 10, at most Config.MaxLimit.
	Limit int
	// Offset skips that many hits.
	Offset int
	// Highlight requests fragments for matched fields.
	Highlight bool
}

// Result is one page of raw hits.
type Result struct {
	Hits  []index.Hit
	Total uint64
}

// Config configures a Searcher.
type Config struct {
	// DefaultLimit applies when a request has no limit. Default: 10.
	DefaultLimit int
	// MaxLimit caps request limits. Default: 1000.
	MaxLimit int
}

// Searcher runs requests against an index.
type Searcher struct {
	idx index.Index
	reg *registry.Registry
	cfg Config
}

// NewSearcher creates a searcher.
func NewSearcher(idx index.Index, reg *registry.Registry, cfg Config) *Searcher {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = maxLimit
	}
	return &Searcher{idx: idx, reg: reg, cfg: cfg}
}

// Search runs req and returns a page of raw hits.
func (s *Searcher) Search(ctx context.Context, req Request) (*Result, error) {
	q, err := s.Query(req)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	limit = min(limit, s.cfg.MaxLimit)

	page, err := s.idx.Search(ctx, q, index.SearchOptions{
		Size:      limit,
		From:      max(req.Offset, 0),
		Highlight: req.Highlight,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Hits: page.Hits, Total: page.Total}, nil
}

// Count returns the number of documents matching req, ignoring paging.
func (s *Searcher) Count(ctx context.Context, req Request) (uint64, error) {
	q, err := s.Query(req)
	if err != nil {
		return 0, err
	}
	page, err := s.idx.Search(ctx, q, index.SearchOptions{Size: 1})
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}

// Query builds the bleve query for req.
func (s *Searcher) Query(req Request) (query.Query, error) {
	text, err := s.textQuery(req)
	if err != nil {
		return nil, err
	}

	parts := []query.Query{text}

	if len(req.Types) > 0 {
		tq, err := s.typesQuery(req.Types)
		if err != nil {
			return nil, err
		}
		parts = append(parts, tq)
	}

	for _, f := range req.Where {
		if f.Field == "" || index.IsReservedField(f.Field) {
			return nil, fmt.Errorf("%w: cannot filter on field %q", ErrInvalidRequest, f.Field)
		}
		pq := bleve.NewMatchPhraseQuery(f.Value)
		pq.SetField(f.Field)
		parts = append(parts, pq)
	}

	if len(parts) == 1 {
		return parts[0], nil
	}
	return bleve.NewConjunctionQuery(parts...), nil
}

func (s *Searcher) textQuery(req Request) (query.Query, error) {
	text := strings.TrimSpace(req.Query)
	if text == "" {
		return bleve.NewMatchAllQuery(), nil
	}
	if req.Fuzziness < 0 {
		return nil, fmt.Errorf("%w: negative fuzziness", ErrInvalidRequest)
	}

	var disjuncts []query.Query
	if len(req.Fields) == 0 {
		for _, b := range s.idx.BoostFields() {
			disjuncts = append(disjuncts, matchQuery(text, b.Field, b.Boost, req))
		}
	} else {
		for _, field := range req.Fields {
			if field == "" || index.IsReservedField(field) {
				return nil, fmt.Errorf("%w: cannot search field %q", ErrInvalidRequest, field)
			}
			disjuncts = append(disjuncts, matchQuery(text, field, s.reg.Boost(field), req))
		}
	}

	switch len(disjuncts) {
	case 0:
		return bleve.NewMatchNoneQuery(), nil
	case 1:
		return disjuncts[0], nil
	}
	return bleve.NewDisjunctionQuery(disjuncts...), nil
}

func matchQuery(text, field string, boost float64, req Request) query.Query {
	boost = index.QueryBoost(boost)
	if req.Phrase {
		q := bleve.NewMatchPhraseQuery(text)
		q.SetField(field)
		q.SetBoost(boost)
		return q
	}
	q := bleve.NewMatchQuery(text)
	q.SetField(field)
	q.SetBoost(boost)
	if req.Fuzziness > 0 {
		q.SetFuzziness(req.Fuzziness)
	}
	return q
}

func (s *Searcher) typesQuery(types []string) (query.Query, error) {
	disjuncts := make([]query.Query, 0, len(types))
	for _, name := range types {
		d, err := s.reg.DescriptorForType(name)
		if err != nil {
			return nil, err
		}
		tq := bleve.NewTermQuery(d.TypeID())
		tq.SetField(index.FieldTypeID)
		disjuncts = append(disjuncts, tq)
	}
	if len(disjuncts) == 1 {
		return disjuncts[0], nil
	}
	return bleve.NewDisjunctionQuery(disjuncts...), nil
}
