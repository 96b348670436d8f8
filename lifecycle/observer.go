package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonwraymond/entityindex/entity"
	"github.com/jonwraymond/entityindex/fields"
	"github.com/jonwraymond/entityindex/index"
	"github.com/jonwraymond/entityindex/metrics"
	"github.com/jonwraymond/entityindex/registry"
)

// Option configures an Observer or a Rebuilder.
type Option func(*options)

type options struct {
	logger      *zap.Logger
	batchSize   int
	parallelism int
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBatchSize sets how many documents a Rebuilder writes per batch.
// Default: 500.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithParallelism caps how many entity types a Rebuilder reads at once.
// Default: 4.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), batchSize: 500, parallelism: 4}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Observer forwards entity saves and deletes to the index.
type Observer struct {
	reg    *registry.Registry
	idx    index.Index
	logger *zap.Logger
}

// NewObserver creates an observer writing to idx.
func NewObserver(reg *registry.Registry, idx index.Index, opts ...Option) *Observer {
	o := applyOptions(opts)
	return &Observer{reg: reg, idx: idx, logger: o.logger}
}

// Saved indexes e, or removes it when it reports itself not searchable.
// Unregistered entity types fail with registry.ErrConfiguration.
func (o *Observer) Saved(ctx context.Context, e entity.Entity) error {
	if !SyncEnabled(ctx) {
		return nil
	}
	d, err := o.reg.DescriptorFor(e)
	if err != nil {
		return err
	}
	if s, ok := e.(entity.Searchable); ok && !s.IsSearchable() {
		return o.delete(ctx, d, e)
	}

	doc, err := fields.DocumentFor(d, e)
	if err != nil {
		return err
	}
	if err := o.idx.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("index %s %s: %w", d.Type(), doc.Key, err)
	}
	metrics.DocumentsIndexedTotal.WithLabelValues(d.Type()).Inc()
	o.logger.Debug("entity_indexed", zap.String("type", d.Type()), zap.String("key", doc.Key))
	return nil
}

// Deleted removes e from the index.
func (o *Observer) Deleted(ctx context.Context, e entity.Entity) error {
	if !SyncEnabled(ctx) {
		return nil
	}
	d, err := o.reg.DescriptorFor(e)
	if err != nil {
		return err
	}
	return o.delete(ctx, d, e)
}

func (o *Observer) delete(ctx context.Context, d *registry.Descriptor, e entity.Entity) error {
	raw, ok := entity.ReadNamedPath(e, d.PrimaryKey())
	key := entity.FormatKey(raw)
	if !ok || key == "" {
		return fmt.Errorf("%w: %s has no %q", entity.ErrMissingKey, d.Type(), d.PrimaryKey())
	}
	if err := o.idx.Delete(ctx, d.TypeID(), key); err != nil {
		return fmt.Errorf("unindex %s %s: %w", d.Type(), key, err)
	}
	metrics.DocumentsDeletedTotal.WithLabelValues(d.Type()).Inc()
	o.logger.Debug("entity_unindexed", zap.String("type", d.Type()), zap.String("key", key))
	return nil
}
