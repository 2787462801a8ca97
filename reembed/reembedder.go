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


package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/occusearch/ai"
	"github.com/poiesic/occusearch/index"
)

// Config holds configuration for the warm-up operation.
type Config struct {
	// BatchSize is the number of titles sent in each embedding request
	BatchSize int

	// Workers is the number of batches embedded concurrently
	Workers int

	// ReportInterval is how often to report progress (number of titles)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		Workers:        max(runtime.NumCPU()/2, 1),
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Stats summarizes a warm-up run.
type Stats struct {
	Pending  int // titles without an embedding when the run started
	Embedded int // titles embedded by this run
	Failed   int // titles whose batch failed
	Elapsed  time.Duration
}

// Reembedder precomputes the embeddings of every pending catalog title.
type Reembedder struct {
	index    *index.Index
	config   *Config
	progress io.Writer
	iterator *TitleIterator
	pool     *ants.Pool
	logger   *slog.Logger

	processor *BatchProcessor
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
// The embedder must produce vectors for the same model as idx.
func NewReembedder(idx *index.Index, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	if idx == nil {
		return nil, errors.New("index cannot be nil")
	}
	if embedder == nil {
		return nil, errors.New("embedder cannot be nil")
	}
	if embedder.ModelID() != idx.ModelID() {
		return nil, fmt.Errorf("%w: embedder %q, index %q", ErrModelMismatch, embedder.ModelID(), idx.ModelID())
	}

	pool, err := ants.NewPool(max(config.Workers, 1))
	if err != nil {
		return nil, err
	}

	retry := RetryPolicy{MaxAttempts: config.MaxRetries, BaseDelay: config.RetryDelay}
	return &Reembedder{
		index:     idx,
		config:    config,
		progress:  progress,
		iterator:  NewTitleIterator(idx, config.BatchSize),
		pool:      pool,
		logger:    slog.Default().With("component", "reembedder"),
		processor: NewBatchProcessor(idx, embedder, retry),
	}, nil
}

// Run embeds every pending title. Failed batches do not stop the run;
// their errors are joined into the returned error and counted in Stats.
func (r *Reembedder) Run(ctx context.Context) (*Stats, error) {
	batches := r.iterator.Batches()
	stats := &Stats{}
	for _, b := range batches {
		stats.Pending += len(b)
	}

	if stats.Pending == 0 {
		fmt.Fprintf(r.progress, "All %d catalog entries already embedded\n", r.index.Len())
		return stats, nil
	}

	fmt.Fprintf(r.progress, "Embedding %d titles (batch size: %d, workers: %d)\n",
		stats.Pending, r.config.BatchSize, r.pool.Cap())

	tracker := NewProgressTracker(r.progress, stats.Pending, r.config.ReportInterval)
	tracker.Start()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := r.pool.Submit(func() {
			defer wg.Done()
			err := r.processor.Process(ctx, batch)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Warn("batch failed", "size", len(batch), "err", err)
				errs = append(errs, err)
				stats.Failed += len(batch)
				tracker.Fail(len(batch))
				return
			}
			stats.Embedded += len(batch)
			tracker.Increment(len(batch))
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, submitErr)
			stats.Failed += len(batch)
			mu.Unlock()
		}
	}
	wg.Wait()

	tracker.Finish()
	stats.Elapsed = tracker.Elapsed()

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	fmt.Fprintf(r.progress, "Warm-up complete. Embedded %d titles in %v (%.1f titles/sec), %d failed\n",
		stats.Embedded, stats.Elapsed.Round(time.Millisecond), float64(stats.Embedded)/stats.Elapsed.Seconds(), stats.Failed)

	return stats, errors.Join(errs...)
}

// Release releases the worker pool. The reembedder should not be used
// after calling Release.
func (r *Reembedder) Release() {
	r.pool.Release()
}
