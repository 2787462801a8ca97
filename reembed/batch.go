package reembed

import (
	"context"
	"fmt"

	"github.com/poiesic/occusearch/ai"
	"github.com/poiesic/occusearch/index"
)

// BatchProcessor embeds batches of titles and stores them in the index.
type BatchProcessor struct {
	index    *index.Index
	embedder ai.Embedder
	retry    RetryPolicy
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(idx *index.Index, embedder ai.Embedder, retry RetryPolicy) *BatchProcessor {
	return &BatchProcessor{
		index:    idx,
		embedder: embedder,
		retry:    retry,
	}
}

// Process embeds titles in one request (retried on failure) and populates
// the index with the results.
func (bp *BatchProcessor) Process(ctx context.Context, titles []string) error {
	if len(titles) == 0 {
		return nil
	}

	var embeddings [][]float32
	err := bp.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, titles)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.retry.MaxAttempts, err)
	}

	if len(embeddings) != len(titles) {
		return fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, len(titles), len(embeddings))
	}

	for i, title := range titles {
		if _, err := bp.index.Populate(ctx, title, embeddings[i]); err != nil {
			return fmt.Errorf("storing embedding for %q: %w", title, err)
		}
	}
	return nil
}
