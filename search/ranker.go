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


package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/poiesic/occusearch/ai"
	"github.com/poiesic/occusearch/core"
	"github.com/poiesic/occusearch/index"
	"github.com/poiesic/occusearch/lexical"
)

// DefaultEmbedTimeout bounds every embedding call made while ranking.
const DefaultEmbedTimeout = 10 * time.Second

// Weights are the coefficients of the hybrid score.
type Weights struct {
	Semantic float64
	Lexical  float64
}

// DefaultWeights returns the standard 0.7 semantic / 0.3 lexical split.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.7, Lexical: 0.3}
}

// Validate checks that both weights are finite and non-negative.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Semantic, w.Lexical} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: semantic=%v lexical=%v", ErrInvalidWeights, w.Semantic, w.Lexical)
		}
	}
	return nil
}

// Ranking is the ordered outcome of one Rank call.
type Ranking struct {
	Results  []core.Result
	Mode     core.Mode // strategy actually used for scoring
	Degraded bool      // hybrid was requested but fallback scoring was used
	// NoMatches is set when fallback scoring found nothing and Results
	// holds only the no-matches row.
	NoMatches bool
}

// Ranker scores every catalog entry against a query.
type Ranker struct {
	index        *index.Index
	embedder     ai.Embedder
	weights      Weights
	embedTimeout time.Duration
	logger       *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithWeights overrides the hybrid fusion weights.
func WithWeights(w Weights) Option {
	return func(r *Ranker) error {
		if err := w.Validate(); err != nil {
			return err
		}
		r.weights = w
		return nil
	}
}

// WithEmbedTimeout bounds each embedding call. Non-positive values are rejected.
func WithEmbedTimeout(d time.Duration) Option {
	return func(r *Ranker) error {
		if d <= 0 {
			return fmt.Errorf("embed timeout must be positive, got %s", d)
		}
		r.embedTimeout = d
		return nil
	}
}

// NewRanker creates a ranker over idx. The embedder embeds queries in hybrid
// mode and may be nil when only fallback scoring is possible.
func NewRanker(idx *index.Index, embedder ai.Embedder, opts ...Option) (*Ranker, error) {
	if idx == nil {
		return nil, ErrIndexRequired
	}

	r := &Ranker{
		index:        idx,
		embedder:     embedder,
		weights:      DefaultWeights(),
		embedTimeout: DefaultEmbedTimeout,
		logger:       slog.Default().With("component", "ranker"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Weights returns the fusion weights in use.
func (r *Ranker) Weights() Weights {
	return r.weights
}

// Rank scores the catalog against query using mode and returns at most
// query.TopK results ordered by score descending. Equal scores keep catalog
// order.
func (r *Ranker) Rank(ctx context.Context, query core.Query, mode core.Mode) (*Ranking, error) {
	return r.RankWithMonitor(ctx, query, mode, nil)
}

// RankWithMonitor is Rank with callbacks at each stage of the ranking.
func (r *Ranker) RankWithMonitor(ctx context.Context, query core.Query, mode core.Mode, monitor SearchMonitor) (*Ranking, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if err := core.ValidateQuery(query); err != nil {
		return nil, err
	}

	monitor.Start(query, mode)

	var ranking *Ranking
	if mode == core.ModeHybrid {
		results, err := r.rankHybrid(ctx, query, monitor)
		switch {
		case err == nil:
			ranking = &Ranking{Results: results, Mode: core.ModeHybrid}
		case ctx.Err() != nil:
			// The caller gave up; a fallback answer would go unread
			return nil, ctx.Err()
		default:
			r.logger.Warn("hybrid ranking failed, using fallback for this search", "query", query.Text, "err", err)
			monitor.Degraded(err)
			ranking = r.rankFallback(query, monitor)
			ranking.Degraded = true
		}
	} else {
		ranking = r.rankFallback(query, monitor)
	}

	monitor.Finish(ranking)
	return ranking, nil
}

func (r *Ranker) rankHybrid(ctx context.Context, query core.Query, monitor SearchMonitor) ([]core.Result, error) {
	if r.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", core.ErrProviderUnavailable)
	}

	queryVector, err := r.embed(ctx, func(ctx context.Context) ([]float32, error) {
		return r.embedder.EmbedText(ctx, query.Text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding: %w", core.ErrProviderCall, err)
	}
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", core.ErrProviderCall)
	}
	monitor.AfterQueryEmbedding(len(queryVector))

	folded := lexical.Fold(query.Text)
	results := make([]core.Result, 0, r.index.Len())
	for i, entry := range r.index.All() {
		candidate, err := r.embed(ctx, func(ctx context.Context) ([]float32, error) {
			return r.index.EmbeddingOf(ctx, i)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: candidate %q: %w", core.ErrProviderCall, entry.Title, err)
		}
		if len(candidate) != len(queryVector) {
			return nil, fmt.Errorf("%w: %w: query has %d, %q has %d",
				core.ErrProviderCall, ErrDimensionMismatch, len(queryVector), entry.Title, len(candidate))
		}

		semantic := CosineSimilarity(queryVector, candidate)
		lex := lexical.TokenSortRatio(folded, lexical.Fold(entry.Title))
		result := core.Result{
			Title:    entry.Title,
			Code:     entry.Code,
			Score:    r.weights.Semantic*semantic + r.weights.Lexical*lex,
			Semantic: semantic,
			Lexical:  lex,
		}
		monitor.CandidateScored(result)
		results = append(results, result)
	}

	slices.SortStableFunc(results, func(a, b core.Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return truncate(results, query.TopK), nil
}

// rankFallback scores 1 for entries whose lower-cased title contains the
// lower-cased query verbatim and keeps only those. An empty outcome is the
// no-matches sentinel.
func (r *Ranker) rankFallback(query core.Query, monitor SearchMonitor) *Ranking {
	var results []core.Result
	for _, entry := range r.index.All() {
		if !lexical.Contains(entry.Title, query.Text) {
			continue
		}
		result := core.Result{Title: entry.Title, Code: entry.Code, Score: 1}
		monitor.CandidateScored(result)
		results = append(results, result)
		if len(results) == query.TopK {
			break
		}
	}

	if len(results) == 0 {
		return &Ranking{Results: []core.Result{core.NoMatchesResult()}, Mode: core.ModeFallback, NoMatches: true}
	}
	return &Ranking{Results: results, Mode: core.ModeFallback}
}

type embedResult struct {
	vector []float32
	err    error
}

// embed runs fn under the per-call embedding timeout. The deadline holds
// even when the provider ignores its context.
func (r *Ranker) embed(ctx context.Context, fn func(ctx context.Context) ([]float32, error)) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	defer cancel()

	done := make(chan embedResult, 1)
	go func() {
		vector, err := fn(ctx)
		done <- embedResult{vector: vector, err: err}
	}()

	select {
	case res := <-done:
		return res.vector, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func truncate(results []core.Result, topK int) []core.Result {
	if len(results) > topK {
		return results[:topK]
	}
	return results
}
