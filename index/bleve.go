package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// Error values for index operations.
var (
	ErrClosed = errors.New("index is closed")
	ErrLocked = errors.New("index is locked by another process")
)

const (
	bucketsKey = "boost_buckets"
	metaPrefix = "meta:"
	clearPage  = 1000
)

// Index is the write/read surface the rest of the module needs from a
// full-text engine.
type Index interface {
	Upsert(ctx context.Context, docs ...Document) error
	Delete(ctx context.Context, typeID string, keys ...string) error
	Search(ctx context.Context, q query.Query, opts SearchOptions) (*Page, error)
	BoostFields() []BoostBucket
	Clear(ctx context.Context) error
	Count() (uint64, error)
	OnChange(fn ChangeListener) func()
	Close() error
}

// SearchOptions controls paging and highlighting.
type SearchOptions struct {
	Size      int
	From      int
	Highlight bool
}

// Page is one page of hits.
type Page struct {
	Hits  []Hit
	Total uint64
}

// BoostBucket is a bucket field and the boost its values were indexed with.
type BoostBucket struct {
	Field string
	Boost float64
}

// BleveIndex is an Index backed by bleve. An empty path keeps the index in
// memory.
type BleveIndex struct {
	mu      sync.RWMutex
	index   bleve.Index
	path    string
	lock    *flock.Flock
	buckets map[string]float64
	closed  bool

	logger    *zap.Logger
	listeners listeners
}

var _ Index = (*BleveIndex)(nil)

// Open opens the index at path, creating it when missing. On-disk indexes
// are guarded by an exclusive lock file next to the index directory.
func Open(ctx context.Context, path string, opts ...Option) (*BleveIndex, error) {
	o := applyOptions(opts)

	b := &BleveIndex{
		path:    path,
		buckets: make(map[string]float64),
		logger:  o.logger,
	}

	var err error
	if path == "" {
		b.index, err = bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		return b, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	b.lock, err = acquireLock(ctx, path+".lock", o.lockTimeout)
	if err != nil {
		return nil, err
	}

	b.index, err = bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		b.index, err = bleve.New(path, newMapping())
		if err == nil {
			b.logger.Info("index_created", zap.String("path", path))
		}
	}
	if err != nil {
		_ = b.lock.Unlock()
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}

	if err := b.loadBuckets(); err != nil {
		_ = b.index.Close()
		_ = b.lock.Unlock()
		return nil, err
	}

	b.logger.Info("index_opened", zap.String("path", path), zap.Int("boost_buckets", len(b.buckets)))
	return b, nil
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	for _, name := range []string{FieldTypeID, FieldKey} {
		kw := bleve.NewKeywordFieldMapping()
		kw.IncludeInAll = false
		im.DefaultMapping.AddFieldMappingsAt(name, kw)
	}
	return im
}

func (b *BleveIndex) loadBuckets() error {
	raw, err := b.index.GetInternal([]byte(bucketsKey))
	if err != nil {
		return fmt.Errorf("failed to read boost buckets: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &b.buckets); err != nil {
		return fmt.Errorf("failed to decode boost buckets: %w", err)
	}
	return nil
}

// Upsert indexes docs, replacing any previous version with the same id.
func (b *BleveIndex) Upsert(ctx context.Context, docs ...Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}

	batch := b.index.NewBatch()
	added := make(map[string]float64)
	events := make([]ChangeEvent, 0, len(docs))

	for _, doc := range docs {
		body, buckets := b.body(doc)
		if err := batch.Index(doc.ID(), body); err != nil {
			b.mu.Unlock()
			return fmt.Errorf("failed to index document %s: %w", doc.ID(), err)
		}
		for field, boost := range buckets {
			if _, ok := b.buckets[field]; !ok {
				added[field] = boost
			}
		}
		events = append(events, ChangeEvent{Type: ChangeUpserted, TypeID: doc.TypeID, Key: doc.Key})
	}

	var next map[string]float64
	if len(added) > 0 {
		next = maps.Clone(b.buckets)
		maps.Copy(next, added)
		raw, err := json.Marshal(next)
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("failed to encode boost buckets: %w", err)
		}
		batch.SetInternal([]byte(bucketsKey), raw)
	}
	if err := b.index.Batch(batch); err != nil {
		b.mu.Unlock()
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	if next != nil {
		b.buckets = next
	}
	b.mu.Unlock()

	b.listeners.emit(events...)
	return nil
}

// body flattens a document into the map bleve indexes. Every value is
// written under its own name and appended to the bucket of its boost.
func (b *BleveIndex) body(doc Document) (map[string]any, map[string]float64) {
	body := map[string]any{
		FieldTypeID: doc.TypeID,
		FieldKey:    doc.Key,
	}
	bucketText := make(map[string][]string)
	buckets := make(map[string]float64)

	for _, name := range slices.Sorted(maps.Keys(doc.Fields)) {
		if IsReservedField(name) {
			b.logger.Warn("reserved_field_skipped", zap.String("doc_id", doc.ID()), zap.String("field", name))
			continue
		}
		f := doc.Fields[name]
		text, ok := Text(f.Value)
		if !ok || text == "" {
			continue
		}
		body[name] = text

		bf := BoostField(f.Boost)
		bucketText[bf] = append(bucketText[bf], text)
		if _, ok := buckets[bf]; !ok {
			buckets[bf] = QueryBoost(f.Boost)
		}
	}
	for bf, parts := range bucketText {
		body[bf] = parts
	}
	return body, buckets
}

// Delete removes the documents of typeID with the given keys.
func (b *BleveIndex) Delete(ctx context.Context, typeID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	batch := b.index.NewBatch()
	events := make([]ChangeEvent, 0, len(keys))
	for _, k := range keys {
		batch.Delete(DocID(typeID, k))
		events = append(events, ChangeEvent{Type: ChangeDeleted, TypeID: typeID, Key: k})
	}
	err := b.index.Batch(batch)
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}

	b.listeners.emit(events...)
	return nil
}

// Search runs q and decodes the hits.
func (b *BleveIndex) Search(ctx context.Context, q query.Query, opts SearchOptions) (*Page, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrClosed
	}

	size := opts.Size
	if size <= 0 {
		size = 10
	}
	req := bleve.NewSearchRequestOptions(q, size, max(opts.From, 0), false)
	req.Fields = []string{FieldTypeID, FieldKey}
	req.SortBy([]string{"-_score", "_id"})
	if opts.Highlight {
		req.Highlight = bleve.NewHighlight()
	}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	page := &Page{Hits: make([]Hit, 0, len(res.Hits)), Total: res.Total}
	for _, dm := range res.Hits {
		hit := Hit{ID: dm.ID, Score: dm.Score}
		hit.TypeID, _ = dm.Fields[FieldTypeID].(string)
		hit.Key, _ = dm.Fields[FieldKey].(string)
		if hit.TypeID == "" || hit.Key == "" {
			hit.TypeID, hit.Key, _ = ParseDocID(dm.ID)
		}
		if opts.Highlight && len(dm.Fragments) > 0 {
			hit.Fragments = make(map[string][]string, len(dm.Fragments))
			for field, frags := range dm.Fragments {
				if !IsReservedField(field) {
					hit.Fragments[field] = frags
				}
			}
		}
		page.Hits = append(page.Hits, hit)
	}
	return page, nil
}

// BoostFields returns every bucket field written so far, ordered by field name.
func (b *BleveIndex) BoostFields() []BoostBucket {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]BoostBucket, 0, len(b.buckets))
	for _, field := range slices.Sorted(maps.Keys(b.buckets)) {
		out = append(out, BoostBucket{Field: field, Boost: b.buckets[field]})
	}
	return out
}

// Clear deletes every document.
func (b *BleveIndex) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}

	deleted := 0
	for {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), clearPage, 0, false)
		res, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if len(res.Hits) == 0 {
			break
		}
		batch := b.index.NewBatch()
		for _, dm := range res.Hits {
			batch.Delete(dm.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			b.mu.Unlock()
			return fmt.Errorf("failed to delete documents: %w", err)
		}
		deleted += len(res.Hits)
	}
	b.mu.Unlock()

	b.logger.Info("index_cleared", zap.String("path", b.path), zap.Int("deleted", deleted))
	b.listeners.emit(ChangeEvent{Type: ChangeCleared})
	return nil
}

// Count returns the number of indexed documents.
func (b *BleveIndex) Count() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, ErrClosed
	}
	return b.index.DocCount()
}

// SetMeta stores a metadata value alongside the index.
func (b *BleveIndex) SetMeta(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return b.index.SetInternal([]byte(metaPrefix+key), []byte(value))
}

// Meta returns a metadata value, or "" when unset.
func (b *BleveIndex) Meta(key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return "", ErrClosed
	}
	raw, err := b.index.GetInternal([]byte(metaPrefix + key))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// OnChange registers a listener for committed changes and returns a
// function that removes it.
func (b *BleveIndex) OnChange(fn ChangeListener) func() {
	return b.listeners.add(fn)
}

// Path returns the on-disk location, or "" for an in-memory index.
func (b *BleveIndex) Path() string { return b.path }

// Close closes the index and releases the lock file.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	err := b.index.Close()
	if b.lock != nil {
		if uerr := b.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}
