// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package index

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/occusearch/ai"
	"github.com/poiesic/occusearch/core"
	"github.com/poiesic/occusearch/storage"
	"golang.org/x/sync/singleflight"
)

// DefaultEmbedTimeout bounds a single provider call made by the index.
const DefaultEmbedTimeout = 10 * time.Second

// Index is an immutable catalog with a lazily populated embedding cache.
// It is safe for concurrent use.
type Index struct {
	entries  []core.CatalogEntry
	embedder ai.Embedder
	modelID  string
	cache    storage.VectorCache
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	vectors map[string][]float32 // keyed by title
	group   singleflight.Group
	closed  atomic.Bool
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used by the index.
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// WithEmbedTimeout bounds each provider call. Non-positive values keep
// DefaultEmbedTimeout.
func WithEmbedTimeout(d time.Duration) Option {
	return func(idx *Index) {
		if d > 0 {
			idx.timeout = d
		}
	}
}

// WithVectorCache adds a persistent second-level cache consulted before the
// embedder and written after every computed embedding.
func WithVectorCache(cache storage.VectorCache) Option {
	return func(idx *Index) {
		idx.cache = cache
	}
}

// Load builds an index over entries. Embeddings are not computed here.
// The embedder may be nil, in which case the index only serves entries.
func Load(entries []core.CatalogEntry, embedder ai.Embedder, opts ...Option) (*Index, error) {
	if len(entries) == 0 {
		return nil, core.ErrEmptyCatalog
	}
	for i, entry := range entries {
		if err := core.ValidateCatalogEntry(entry); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	idx := &Index{
		entries:  slices.Clone(entries),
		embedder: embedder,
		timeout:  DefaultEmbedTimeout,
		logger:   slog.Default().With("component", "index"),
		vectors:  make(map[string][]float32),
	}
	if embedder != nil {
		idx.modelID = embedder.ModelID()
	}
	for _, opt := range opts {
		opt(idx)
	}

	idx.logger.Debug("index loaded", "entries", len(idx.entries), "model", idx.modelID)
	return idx, nil
}

// Len returns the number of catalog entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entry returns the entry at position i.
func (idx *Index) Entry(i int) (core.CatalogEntry, error) {
	if i < 0 || i >= len(idx.entries) {
		return core.CatalogEntry{}, fmt.Errorf("%w: %d", ErrEntryOutOfRange, i)
	}
	return idx.entries[i], nil
}

// All iterates the entries in insertion order. The sequence can be
// restarted and never observes a partially loaded catalog.
func (idx *Index) All() iter.Seq2[int, core.CatalogEntry] {
	return func(yield func(int, core.CatalogEntry) bool) {
		for i, entry := range idx.entries {
			if !yield(i, entry) {
				return
			}
		}
	}
}

// ModelID returns the identity of the model that produces this index's
// embeddings, or "" when the index has no embedder.
func (idx *Index) ModelID() string {
	return idx.modelID
}

// HasEmbedder reports whether embeddings can be computed.
func (idx *Index) HasEmbedder() bool {
	return idx.embedder != nil
}

// EmbeddingOf returns the embedding of the entry at position i, computing
// and caching it on first use. The returned slice is a copy.
//
// Concurrent first requests for one title share a single provider call.
// That call is detached from every caller's context and bounded by the
// index's embed timeout, so a caller giving up only ends its own wait.
func (idx *Index) EmbeddingOf(ctx context.Context, i int) ([]float32, error) {
	if idx.closed.Load() {
		return nil, ErrIndexClosed
	}
	entry, err := idx.Entry(i)
	if err != nil {
		return nil, err
	}

	if vector, ok := idx.lookup(entry.Title); ok {
		return slices.Clone(vector), nil
	}
	if idx.embedder == nil {
		return nil, ErrNoEmbedder
	}

	ch := idx.group.DoChan(entry.Title, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), idx.timeout)
		defer cancel()
		return idx.populate(callCtx, entry.Title)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]float32)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// populate resolves a title through the persistent cache, then the embedder.
func (idx *Index) populate(ctx context.Context, title string) ([]float32, error) {
	if vector, ok := idx.lookup(title); ok {
		return vector, nil
	}

	if idx.cache != nil {
		cached, err := idx.cache.GetVector(ctx, idx.modelID, title)
		switch {
		case err == nil:
			return idx.store(title, slices.Clone(cached.Vector)), nil
		case !errors.Is(err, storage.ErrNotFound):
			idx.logger.Warn("vector cache read failed", "title", title, "err", err)
		}
	}

	vector, err := idx.embedder.EmbedText(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %q: %w", core.ErrProviderCall, title, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty embedding for %q", core.ErrProviderCall, title)
	}

	stored := idx.store(title, slices.Clone(vector))
	idx.persist(ctx, title, stored)
	return stored, nil
}

// Populate records an externally computed embedding for title, as done by
// bulk warm-up. An embedding already present is kept; the stored vector is
// returned either way.
func (idx *Index) Populate(ctx context.Context, title string, vector []float32) ([]float32, error) {
	if idx.closed.Load() {
		return nil, ErrIndexClosed
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty embedding for %q", core.ErrProviderCall, title)
	}
	if existing, ok := idx.lookup(title); ok {
		return slices.Clone(existing), nil
	}
	stored := idx.store(title, slices.Clone(vector))
	idx.persist(ctx, title, stored)
	return slices.Clone(stored), nil
}

// Pending returns the distinct titles that have no embedding yet, in
// catalog order.
func (idx *Index) Pending() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[string]struct{})
	var pending []string
	for _, entry := range idx.entries {
		if _, ok := idx.vectors[entry.Title]; ok {
			continue
		}
		if _, ok := seen[entry.Title]; ok {
			continue
		}
		seen[entry.Title] = struct{}{}
		pending = append(pending, entry.Title)
	}
	return pending
}

// Cached returns the number of distinct titles with an embedding.
func (idx *Index) Cached() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Shutdown releases the embedding cache. Subsequent embedding requests
// fail with ErrIndexClosed; entries remain readable.
func (idx *Index) Shutdown() {
	if idx.closed.Swap(true) {
		return
	}
	idx.mu.Lock()
	idx.vectors = make(map[string][]float32)
	idx.mu.Unlock()
	idx.logger.Debug("index shut down")
}

func (idx *Index) lookup(title string) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	v, ok := idx.vectors[title]
	return v, ok
}

// store sets the embedding for title unless one exists, returning the
// embedding that ends up cached.
func (idx *Index) store(title string, vector []float32) []float32 {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if existing, ok := idx.vectors[title]; ok {
		return existing
	}
	idx.vectors[title] = vector
	return vector
}

func (idx *Index) persist(ctx context.Context, title string, vector []float32) {
	if idx.cache == nil {
		return
	}
	err := idx.cache.PutVectors(ctx, &core.CachedVector{
		ModelID: idx.modelID,
		Title:   title,
		Vector:  vector,
	})
	if err != nil {
		idx.logger.Warn("vector cache write failed", "title", title, "err", err)
	}
}
