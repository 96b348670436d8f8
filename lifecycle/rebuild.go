package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/entityindex/entity"
	"github.com/jonwraymond/entityindex/fields"
	"github.com/jonwraymond/entityindex/index"
	"github.com/jonwraymond/entityindex/metrics"
	"github.com/jonwraymond/entityindex/registry"
)

// FingerprintMetaKey is the index metadata key holding the registry
// fingerprint of the last rebuild.
const FingerprintMetaKey = "registry_fingerprint"

// ErrNotRebuildable is returned for repositories that can neither stream
// entities nor load them by key.
var ErrNotRebuildable = errors.New("repository cannot be rebuilt")

// MetaStore is implemented by indexes that persist metadata.
type MetaStore interface {
	SetMeta(key, value string) error
	Meta(key string) (string, error)
}

// Stats summarizes a rebuild.
type Stats struct {
	// Documents counts indexed documents per entity type.
	Documents map[string]int
	// Skipped counts entities that reported themselves not searchable.
	Skipped  map[string]int
	Duration time.Duration
}

// Total returns the number of indexed documents.
func (s Stats) Total() int {
	n := 0
	for _, c := range s.Documents {
		n += c
	}
	return n
}

// Rebuilder re-indexes every registered entity type from its repository.
type Rebuilder struct {
	reg  *registry.Registry
	idx  index.Index
	opts options
}

// NewRebuilder creates a rebuilder writing to idx.
func NewRebuilder(reg *registry.Registry, idx index.Index, opts ...Option) *Rebuilder {
	return &Rebuilder{reg: reg, idx: idx, opts: applyOptions(opts)}
}

// Rebuild clears the index and indexes every entity again. When the index
// is a MetaStore the registry fingerprint is recorded afterwards.
func (r *Rebuilder) Rebuild(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats := Stats{Documents: make(map[string]int), Skipped: make(map[string]int)}

	for _, d := range r.reg.Descriptors() {
		if !rebuildable(d.Repository()) {
			return stats, fmt.Errorf("%w: %s", ErrNotRebuildable, d.Type())
		}
	}

	if err := r.idx.Clear(ctx); err != nil {
		return stats, fmt.Errorf("clear index: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.parallelism)
	for _, d := range r.reg.Descriptors() {
		g.Go(func() error {
			indexed, skipped, err := r.rebuildType(gctx, d)
			mu.Lock()
			stats.Documents[d.Type()] = indexed
			stats.Skipped[d.Type()] = skipped
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	if ms, ok := r.idx.(MetaStore); ok {
		if err := ms.SetMeta(FingerprintMetaKey, r.reg.Fingerprint()); err != nil {
			return stats, fmt.Errorf("record fingerprint: %w", err)
		}
	}

	stats.Duration = time.Since(start)
	metrics.RebuildDuration.Observe(stats.Duration.Seconds())
	r.opts.logger.Info("index_rebuilt",
		zap.Int("documents", stats.Total()),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func rebuildable(repo entity.Repository) bool {
	if _, ok := repo.(entity.Iterator); ok {
		return true
	}
	_, ok := repo.(entity.Loader)
	return ok
}

func (r *Rebuilder) rebuildType(ctx context.Context, d *registry.Descriptor) (indexed, skipped int, err error) {
	batch := make([]index.Document, 0, r.opts.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.idx.Upsert(ctx, batch...); err != nil {
			return fmt.Errorf("index %s: %w", d.Type(), err)
		}
		indexed += len(batch)
		metrics.RebuildDocumentsTotal.WithLabelValues(d.Type()).Add(float64(len(batch)))
		batch = batch[:0]
		return nil
	}

	visit := func(e entity.Entity) error {
		if s, ok := e.(entity.Searchable); ok && !s.IsSearchable() {
			skipped++
			return nil
		}
		doc, err := fields.DocumentFor(d, e)
		if err != nil {
			return err
		}
		batch = append(batch, doc)
		if len(batch) >= r.opts.batchSize {
			return flush()
		}
		return nil
	}

	if err := each(ctx, d.Repository(), r.opts.batchSize, visit); err != nil {
		return indexed, skipped, err
	}
	if err := flush(); err != nil {
		return indexed, skipped, err
	}
	r.opts.logger.Debug("type_rebuilt",
		zap.String("type", d.Type()),
		zap.Int("documents", indexed),
		zap.Int("skipped", skipped),
	)
	return indexed, skipped, nil
}

// each streams a repository through Iterator, or pages through its keys
// with Loader.
func each(ctx context.Context, repo entity.Repository, pageSize int, fn func(entity.Entity) error) error {
	if it, ok := repo.(entity.Iterator); ok {
		return it.Each(ctx, fn)
	}

	loader := repo.(entity.Loader)
	keys, err := repo.ListAllPrimaryKeys(ctx)
	if err != nil {
		return fmt.Errorf("list %s keys: %w", repo.EntityType(), err)
	}
	for start := 0; start < len(keys); start += pageSize {
		page := keys[start:min(start+pageSize, len(keys))]
		entities, err := loader.Find(ctx, page)
		if err != nil {
			return fmt.Errorf("load %s: %w", repo.EntityType(), err)
		}
		for _, e := range entities {
			if err := fn(e); err != nil {
				return err
			}
		}
	}
	return nil
}
