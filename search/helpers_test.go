package search

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/occusearch/ai/mock"
	"github.com/poiesic/occusearch/core"
	"github.com/poiesic/occusearch/index"
	"github.com/stretchr/testify/require"
)

// mapEmbedder returns a mock embedder serving fixed vectors by text.
func mapEmbedder(vectors map[string][]float32) *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		v, ok := vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		return v, nil
	}
	return embedder
}

// constantEmbedder maps every text to the same vector, so semantic
// similarity is 1 everywhere and the lexical score decides the order.
func constantEmbedder() *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 1}, nil
	}
	return embedder
}

func newTestRanker(t *testing.T, entries []core.CatalogEntry, embedder *mock.MockEmbedder, opts ...Option) *Ranker {
	t.Helper()
	var idx *index.Index
	var err error
	if embedder == nil {
		idx, err = index.Load(entries, nil)
		require.NoError(t, err)
		r, err := NewRanker(idx, nil, opts...)
		require.NoError(t, err)
		return r
	}
	idx, err = index.Load(entries, embedder)
	require.NoError(t, err)
	r, err := NewRanker(idx, embedder, opts...)
	require.NoError(t, err)
	return r
}

type recordingMonitor struct {
	mu        sync.Mutex
	started   int
	embedded  int
	scored    int
	degraded  []error
	finished  *Ranking
	startMode core.Mode
}

func (m *recordingMonitor) Start(_ core.Query, mode core.Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
	m.startMode = mode
}

func (m *recordingMonitor) AfterQueryEmbedding(_ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedded++
}

func (m *recordingMonitor) CandidateScored(_ core.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scored++
}

func (m *recordingMonitor) Degraded(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded = append(m.degraded, err)
}

func (m *recordingMonitor) Finish(ranking *Ranking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = ranking
}
