package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonwraymond/entityindex/entity"
	"github.com/jonwraymond/entityindex/index"
	"github.com/jonwraymond/entityindex/lifecycle"
	"github.com/jonwraymond/entityindex/metrics"
	"github.com/jonwraymond/entityindex/registry"
	"github.com/jonwraymond/entityindex/resolve"
	"github.com/jonwraymond/entityindex/search"
)

// Error values for engine operations.
var (
	ErrNoRegistry  = errors.New("engine requires a registry")
	ErrNotLoadable = errors.New("repository cannot load entities")
)

// Options configures an Engine.
type Options struct {
	// Registry describes the indexable entity types. Required.
	Registry *registry.Registry

	// Index stores documents. If nil, an index is opened at IndexPath and
	// closed with the engine.
	Index index.Index

	// IndexPath is the on-disk index directory. Empty means in memory.
	// Ignored when Index is set.
	IndexPath string

	// LockTimeout bounds the wait for the on-disk index lock.
	// Default: index.DefaultLockTimeout.
	LockTimeout time.Duration

	// Search configures paging limits.
	Search search.Config

	// SearchableIDCacheSize enables caching of searchable id sets for that
	// many entity types. Zero disables the cache.
	SearchableIDCacheSize int

	// SearchableIDCacheTTL expires cached id sets. Zero keeps them until
	// the index reports a change to their type.
	SearchableIDCacheTTL time.Duration

	// BatchSize is the number of documents written per rebuild batch.
	// Default: 500.
	BatchSize int

	// Parallelism caps how many entity types are rebuilt at once.
	// Default: 4.
	Parallelism int

	// Logger receives engine logs. Default: no-op.
	Logger *zap.Logger
}

// Engine is the unified facade for entity indexing and search.
type Engine struct {
	reg       *registry.Registry
	idx       index.Index
	ownsIndex bool
	searcher  *search.Searcher
	resolver  *resolve.Resolver
	observer  *lifecycle.Observer
	rebuilder *lifecycle.Rebuilder
	logger    *zap.Logger
	unsub     func()
}

// New creates an engine with the given options.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, ErrNoRegistry
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{reg: opts.Registry, idx: opts.Index, logger: logger}

	if e.idx == nil {
		idx, err := index.Open(ctx, opts.IndexPath,
			index.WithLockTimeout(opts.LockTimeout),
			index.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		e.idx = idx
		e.ownsIndex = true
	}

	var resolveOpts []resolve.Option
	resolveOpts = append(resolveOpts, resolve.WithLogger(logger))
	if opts.SearchableIDCacheSize > 0 {
		resolveOpts = append(resolveOpts, resolve.WithSearchableIDCache(opts.SearchableIDCacheSize, opts.SearchableIDCacheTTL))
	}
	e.resolver = resolve.New(e.reg, resolveOpts...)

	e.searcher = search.NewSearcher(e.idx, e.reg, opts.Search)

	lifecycleOpts := []lifecycle.Option{
		lifecycle.WithLogger(logger),
		lifecycle.WithBatchSize(opts.BatchSize),
		lifecycle.WithParallelism(opts.Parallelism),
	}
	e.observer = lifecycle.NewObserver(e.reg, e.idx, lifecycleOpts...)
	e.rebuilder = lifecycle.NewRebuilder(e.reg, e.idx, lifecycleOpts...)

	e.unsub = e.idx.OnChange(func(ev index.ChangeEvent) {
		if ev.Type == index.ChangeCleared {
			e.resolver.Purge()
			return
		}
		e.resolver.Invalidate(ev.TypeID)
	})

	return e, nil
}

// Search runs req and returns resolved results ordered by relevance.
// Hits for entities that are gone or no longer searchable are dropped.
func (e *Engine) Search(ctx context.Context, req search.Request) (Results, error) {
	results, _, err := e.SearchPage(ctx, req)
	return results, err
}

// SearchPage is Search that also returns the number of raw hits matching
// req before stale hits are dropped.
func (e *Engine) SearchPage(ctx context.Context, req search.Request) (Results, uint64, error) {
	start := time.Now()
	results, total, err := e.searchPage(ctx, req)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(status).Inc()
	return results, total, err
}

func (e *Engine) searchPage(ctx context.Context, req search.Request) (Results, uint64, error) {
	res, err := e.searcher.Search(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	refs, err := e.resolver.References(ctx, res.Hits)
	if err != nil {
		return nil, 0, err
	}

	fragments := make(map[string]map[string][]string, len(res.Hits))
	for _, h := range res.Hits {
		if len(h.Fragments) > 0 {
			fragments[h.ID] = h.Fragments
		}
	}

	results := make(Results, len(refs))
	for i, ref := range refs {
		results[i] = Result{Reference: ref, Fragments: fragments[index.DocID(ref.TypeID, ref.Key)]}
	}
	return results, res.Total, nil
}

// Count returns the number of documents matching req.
func (e *Engine) Count(ctx context.Context, req search.Request) (uint64, error) {
	return e.searcher.Count(ctx, req)
}

// Load returns the full entities behind results, in result order. Entities
// that no longer exist are skipped. Repositories must implement
// entity.Loader.
func (e *Engine) Load(ctx context.Context, results Results) ([]entity.Entity, error) {
	byType := make(map[string][]string)
	var order []string
	for _, r := range results {
		if _, ok := byType[r.TypeID]; !ok {
			order = append(order, r.TypeID)
		}
		byType[r.TypeID] = append(byType[r.TypeID], r.Key)
	}

	loaded := make(map[string]entity.Entity, len(results))
	for _, typeID := range order {
		d, err := e.reg.DescriptorForTypeID(typeID)
		if err != nil {
			return nil, err
		}
		loader, ok := d.Repository().(entity.Loader)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotLoadable, d.Type())
		}
		entities, err := loader.Find(ctx, byType[typeID])
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", d.Type(), err)
		}
		for _, ent := range entities {
			raw, _ := entity.ReadNamedPath(ent, d.PrimaryKey())
			loaded[index.DocID(typeID, entity.FormatKey(raw))] = ent
		}
	}

	out := make([]entity.Entity, 0, len(results))
	for _, r := range results {
		if ent, ok := loaded[index.DocID(r.TypeID, r.Key)]; ok {
			out = append(out, ent)
		}
	}
	return out, nil
}

// Observer returns the lifecycle hooks writing to the engine's index.
func (e *Engine) Observer() *lifecycle.Observer {
	return e.observer
}

// Rebuild clears the index and indexes every registered entity again.
func (e *Engine) Rebuild(ctx context.Context) (lifecycle.Stats, error) {
	return e.rebuilder.Rebuild(ctx)
}

// Clear removes every document from the index.
func (e *Engine) Clear(ctx context.Context) error {
	return e.idx.Clear(ctx)
}

// Stale reports whether the index was built for a different registry. An
// index with documents but no recorded fingerprint is stale; an empty one
// is not. Indexes without metadata are never stale.
func (e *Engine) Stale() (bool, error) {
	ms, ok := e.idx.(lifecycle.MetaStore)
	if !ok {
		return false, nil
	}
	fp, err := ms.Meta(lifecycle.FingerprintMetaKey)
	if err != nil {
		return false, err
	}
	if fp != "" {
		return fp != e.reg.Fingerprint(), nil
	}
	n, err := e.idx.Count()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OnChange registers a listener for index changes.
// Returns an unsubscribe function.
func (e *Engine) OnChange(listener index.ChangeListener) func() {
	return e.idx.OnChange(listener)
}

// Registry returns the entity registry.
func (e *Engine) Registry() *registry.Registry {
	return e.reg
}

// Index returns the underlying index for advanced operations.
func (e *Engine) Index() index.Index {
	return e.idx
}

// Resolver returns the hit resolver.
func (e *Engine) Resolver() *resolve.Resolver {
	return e.resolver
}

// Close releases the index when the engine opened it.
func (e *Engine) Close() error {
	if e.unsub != nil {
		e.unsub()
	}
	if e.ownsIndex {
		return e.idx.Close()
	}
	return nil
}
