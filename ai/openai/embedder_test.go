package openai

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/occusearch/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
)

// recordingClient answers every text with a one-element vector holding its length.
type recordingClient struct {
	mu      sync.Mutex
	batches [][]string
	err     error
	empty   bool
}

func (c *recordingClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batches = append(c.batches, append([]string(nil), texts...))
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if c.empty {
		return [][]float32{}, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func testConfig(batchSize int) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost("http://localhost:11434"),
		ai.WithEmbeddingModel("test-model"),
		ai.WithBatchSize(batchSize),
	)
}

func TestEmbedder_EmbedText(t *testing.T) {
	client := &recordingClient{}
	e, err := newEmbedderWithClient(client, testConfig(8))
	require.NoError(t, err)

	vec, err := e.EmbedText(context.Background(), "  Software\n  Engineer ")
	require.NoError(t, err)
	assert.Equal(t, []float32{17}, vec)
	assert.Equal(t, [][]string{{"Software Engineer"}}, client.batches)
	assert.Equal(t, "test-model", e.ModelID())
}

func TestEmbedder_EmbedTextsBatches(t *testing.T) {
	client := &recordingClient{}
	e, err := newEmbedderWithClient(client, testConfig(2))
	require.NoError(t, err)

	input := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := e.EmbedTexts(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	for i, v := range vecs {
		assert.Equal(t, []float32{float32(i + 1)}, v)
	}
	assert.Len(t, client.batches, 3)
	assert.Equal(t, []string{"a", "bb", "ccc", "dddd", "eeeee"}, input, "input must not be mutated")
}

func TestEmbedder_Errors(t *testing.T) {
	t.Run("client failure", func(t *testing.T) {
		boom := errors.New("connection refused")
		e, err := newEmbedderWithClient(&recordingClient{err: boom}, testConfig(8))
		require.NoError(t, err)

		_, err = e.EmbedText(context.Background(), "nurse")
		assert.ErrorIs(t, err, boom)

		_, err = e.EmbedTexts(context.Background(), []string{"nurse"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty result", func(t *testing.T) {
		e, err := newEmbedderWithClient(&recordingClient{empty: true}, testConfig(8))
		require.NoError(t, err)

		_, err = e.EmbedText(context.Background(), "nurse")
		assert.ErrorIs(t, err, ErrEmptyEmbedding)
	})
}

func TestEmbedder_ClientFunc(t *testing.T) {
	client := embeddings.EmbedderClientFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{0.6, 0.8}}, nil
	})
	e, err := newEmbedderWithClient(client, testConfig(8))
	require.NoError(t, err)

	vec, err := e.EmbedText(context.Background(), "welder")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, vec)
}

func TestNewEmbedder_InvalidConfig(t *testing.T) {
	cfg := testConfig(8)
	cfg.EmbeddingModel = ""
	_, err := NewEmbedder(cfg)
	assert.Error(t, err)

	cfg = testConfig(0)
	_, err = NewEmbedder(cfg)
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	cfg := testConfig(8)
	p, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost, "host is normalized")
	require.NotNil(t, p.Embedder())
	assert.Equal(t, "test-model", p.Embedder().ModelID())
	assert.NoError(t, p.Close())

	_, err = NewProvider(&ai.Config{})
	assert.Error(t, err)
}
