package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/occusearch/ai/mock"
	"github.com/poiesic/occusearch/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

func TestBatchProcessor_Process(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	idx, err := index.Load(catalogOf("Nurse", "Teacher", "Welder"), embedder)
	require.NoError(t, err)

	bp := NewBatchProcessor(idx, embedder, fastRetry)
	require.NoError(t, bp.Process(context.Background(), []string{"Nurse", "Teacher"}))

	assert.Equal(t, 1, embedder.CallCount(), "one request per batch")
	assert.Equal(t, []string{"Welder"}, idx.Pending())

	// Cached embeddings are served without another provider call
	_, err = idx.EmbeddingOf(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.CallsFor("Nurse"))
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	idx, err := index.Load(catalogOf("Nurse"), embedder)
	require.NoError(t, err)

	require.NoError(t, NewBatchProcessor(idx, embedder, fastRetry).Process(context.Background(), nil))
	assert.Equal(t, 0, embedder.CallCount())
}

func TestBatchProcessor_Retries(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	calls := 0
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("503 service unavailable")
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0}
		}
		return out, nil
	}
	idx, err := index.Load(catalogOf("Nurse"), embedder)
	require.NoError(t, err)

	require.NoError(t, NewBatchProcessor(idx, embedder, fastRetry).Process(context.Background(), []string{"Nurse"}))
	assert.Equal(t, 2, calls)
	assert.Empty(t, idx.Pending())
}

func TestBatchProcessor_Failures(t *testing.T) {
	t.Run("exhausted retries", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("down")
		}
		idx, err := index.Load(catalogOf("Nurse"), embedder)
		require.NoError(t, err)

		err = NewBatchProcessor(idx, embedder, fastRetry).Process(context.Background(), []string{"Nurse"})
		assert.Error(t, err)
		assert.Equal(t, []string{"Nurse"}, idx.Pending())
	})

	t.Run("count mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1}}, nil
		}
		idx, err := index.Load(catalogOf("Nurse", "Teacher"), embedder)
		require.NoError(t, err)

		err = NewBatchProcessor(idx, embedder, fastRetry).Process(context.Background(), []string{"Nurse", "Teacher"})
		assert.ErrorIs(t, err, ErrCountMismatch)
	})
}
