package search

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/poiesic/occusearch/ai/mock"
	"github.com/poiesic/occusearch/core"
	"github.com/poiesic/occusearch/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var occupations = []core.CatalogEntry{
	{Title: "Software Engineer", Code: "2512.0100"},
	{Title: "Civil Engineer", Code: "2142.0100"},
	{Title: "Nurse", Code: "2221.0100"},
}

var occupationVectors = map[string][]float32{
	"software engr":     {1, 0},
	"Software Engineer": {1, 0},
	"Civil Engineer":    {0.6, 0.8},
	"Nurse":             {0, 1},
}

func TestNewRanker(t *testing.T) {
	t.Run("requires index", func(t *testing.T) {
		_, err := NewRanker(nil, nil)
		assert.ErrorIs(t, err, ErrIndexRequired)
	})

	t.Run("defaults", func(t *testing.T) {
		r := newTestRanker(t, occupations, nil)
		assert.Equal(t, DefaultWeights(), r.Weights())
		assert.Equal(t, DefaultEmbedTimeout, r.embedTimeout)
	})

	t.Run("rejects invalid weights", func(t *testing.T) {
		idx, err := index.Load(occupations, nil)
		require.NoError(t, err)

		for _, w := range []Weights{{-0.1, 1}, {1, math.NaN()}, {math.Inf(1), 0}} {
			_, err := NewRanker(idx, nil, WithWeights(w))
			assert.ErrorIs(t, err, ErrInvalidWeights)
		}
	})

	t.Run("rejects non-positive timeout", func(t *testing.T) {
		idx, err := index.Load(occupations, nil)
		require.NoError(t, err)
		_, err = NewRanker(idx, nil, WithEmbedTimeout(0))
		assert.Error(t, err)
	})
}

func TestRank_InvalidArguments(t *testing.T) {
	r := newTestRanker(t, occupations, constantEmbedder())
	ctx := context.Background()

	for _, mode := range []core.Mode{core.ModeHybrid, core.ModeFallback} {
		t.Run(mode.String(), func(t *testing.T) {
			_, err := r.Rank(ctx, core.Query{Text: "nurse", TopK: 0}, mode)
			assert.ErrorIs(t, err, core.ErrInvalidArgument)
			assert.ErrorIs(t, err, core.ErrInvalidTopK)

			_, err = r.Rank(ctx, core.Query{Text: "nurse", TopK: -3}, mode)
			assert.ErrorIs(t, err, core.ErrInvalidArgument)

			_, err = r.Rank(ctx, core.Query{Text: "   ", TopK: 3}, mode)
			assert.ErrorIs(t, err, core.ErrInvalidArgument)
			assert.ErrorIs(t, err, core.ErrEmptyQuery)
		})
	}
}

func TestRank_HybridScenario(t *testing.T) {
	embedder := mapEmbedder(occupationVectors)
	r := newTestRanker(t, occupations, embedder)

	ranking, err := r.Rank(context.Background(), core.Query{Text: "software engr", TopK: 3}, core.ModeHybrid)
	require.NoError(t, err)
	require.Len(t, ranking.Results, 3)
	assert.Equal(t, core.ModeHybrid, ranking.Mode)
	assert.False(t, ranking.Degraded)

	top := ranking.Results[0]
	assert.Equal(t, "Software Engineer", top.Title)
	assert.Equal(t, "2512.0100", top.Code)
	assert.InDelta(t, 1.0, top.Semantic, 1e-9)
	assert.InDelta(t, 1-4.0/30.0, top.Lexical, 1e-9)
	assert.InDelta(t, 0.7+0.3*(1-4.0/30.0), top.Score, 1e-9)

	assert.Equal(t, "Civil Engineer", ranking.Results[1].Title)
	assert.InDelta(t, 0.6, ranking.Results[1].Semantic, 1e-6)
	assert.Equal(t, "Nurse", ranking.Results[2].Title)
	assert.InDelta(t, 0.0, ranking.Results[2].Semantic, 1e-9)

	for i := 1; i < len(ranking.Results); i++ {
		assert.GreaterOrEqual(t, ranking.Results[i-1].Score, ranking.Results[i].Score)
	}
}

func TestRank_HybridLength(t *testing.T) {
	r := newTestRanker(t, occupations, constantEmbedder())
	ctx := context.Background()

	for topK := 1; topK <= 5; topK++ {
		ranking, err := r.Rank(ctx, core.Query{Text: "engineer", TopK: topK}, core.ModeHybrid)
		require.NoError(t, err)
		assert.Len(t, ranking.Results, min(topK, len(occupations)))
	}
}

func TestRank_HybridDeterministic(t *testing.T) {
	r := newTestRanker(t, occupations, mock.NewMockEmbedder())
	ctx := context.Background()
	query := core.Query{Text: "ingeniero de software", TopK: 3}

	first, err := r.Rank(ctx, query, core.ModeHybrid)
	require.NoError(t, err)
	second, err := r.Rank(ctx, query, core.ModeHybrid)
	require.NoError(t, err)

	assert.Equal(t, first.Results, second.Results)
}

func TestRank_HybridMonotonicFusion(t *testing.T) {
	r := newTestRanker(t, occupations, mock.NewMockEmbedder())

	ranking, err := r.Rank(context.Background(), core.Query{Text: "civil engr", TopK: 3}, core.ModeHybrid)
	require.NoError(t, err)

	for _, a := range ranking.Results {
		for _, b := range ranking.Results {
			if a.Semantic >= b.Semantic && a.Lexical >= b.Lexical {
				assert.GreaterOrEqual(t, a.Score, b.Score, "%s vs %s", a.Title, b.Title)
			}
		}
	}
}

func TestRank_HybridTiesKeepCatalogOrder(t *testing.T) {
	entries := []core.CatalogEntry{
		{Title: "Nurse", Code: "A"},
		{Title: "Teacher", Code: "T"},
		{Title: "Nurse", Code: "B"},
	}
	r := newTestRanker(t, entries, constantEmbedder())

	ranking, err := r.Rank(context.Background(), core.Query{Text: "nurse", TopK: 3}, core.ModeHybrid)
	require.NoError(t, err)
	require.Len(t, ranking.Results, 3)
	assert.Equal(t, "A", ranking.Results[0].Code)
	assert.Equal(t, "B", ranking.Results[1].Code)
	assert.Equal(t, ranking.Results[0].Score, ranking.Results[1].Score)
	assert.Equal(t, "T", ranking.Results[2].Code)
}

func TestRank_HybridCustomWeights(t *testing.T) {
	r := newTestRanker(t, occupations, mapEmbedder(occupationVectors), WithWeights(Weights{Semantic: 1, Lexical: 0}))

	ranking, err := r.Rank(context.Background(), core.Query{Text: "software engr", TopK: 3}, core.ModeHybrid)
	require.NoError(t, err)
	for _, res := range ranking.Results {
		assert.InDelta(t, res.Semantic, res.Score, 1e-12)
	}
}

func TestRank_HybridEmbedsCandidatesOnce(t *testing.T) {
	embedder := mapEmbedder(occupationVectors)
	r := newTestRanker(t, occupations, embedder)
	ctx := context.Background()
	query := core.Query{Text: "software engr", TopK: 2}

	for range 3 {
		_, err := r.Rank(ctx, query, core.ModeHybrid)
		require.NoError(t, err)
	}

	for _, entry := range occupations {
		assert.Equal(t, 1, embedder.CallsFor(entry.Title), entry.Title)
	}
	assert.Equal(t, 3, embedder.CallsFor("software engr"))
}

func TestRank_FallbackScenario(t *testing.T) {
	entries := []core.CatalogEntry{
		{Title: "Software Engineer", Code: "1"},
		{Title: "Civil Engineer", Code: "2"},
		{Title: "Nurse", Code: "3"},
		{Title: "Mechanical ENGINEER", Code: "4"},
	}
	r := newTestRanker(t, entries, nil)
	ctx := context.Background()

	t.Run("truncated to top k", func(t *testing.T) {
		ranking, err := r.Rank(ctx, core.Query{Text: "engineer", TopK: 2}, core.ModeFallback)
		require.NoError(t, err)
		assert.Equal(t, core.ModeFallback, ranking.Mode)
		assert.False(t, ranking.Degraded)
		assert.Equal(t, []core.Result{
			{Title: "Software Engineer", Code: "1", Score: 1},
			{Title: "Civil Engineer", Code: "2", Score: 1},
		}, ranking.Results)
	})

	t.Run("only matches are returned", func(t *testing.T) {
		ranking, err := r.Rank(ctx, core.Query{Text: "Engineer", TopK: 10}, core.ModeFallback)
		require.NoError(t, err)
		require.Len(t, ranking.Results, 3)
		for _, res := range ranking.Results {
			assert.Equal(t, 1.0, res.Score)
			assert.Contains(t, []string{"1", "2", "4"}, res.Code)
		}
		assert.Equal(t, "4", ranking.Results[2].Code)
	})

	t.Run("no matches sentinel", func(t *testing.T) {
		ranking, err := r.Rank(ctx, core.Query{Text: "pilot", TopK: 3}, core.ModeFallback)
		require.NoError(t, err)
		assert.Equal(t, []core.Result{core.NoMatchesResult()}, ranking.Results)
		assert.Equal(t, 0.0, ranking.Results[0].Score)
		assert.True(t, ranking.NoMatches)
	})

	t.Run("query whitespace is literal", func(t *testing.T) {
		ranking, err := r.Rank(ctx, core.Query{Text: "engineer ", TopK: 3}, core.ModeFallback)
		require.NoError(t, err)
		assert.True(t, ranking.NoMatches)
		assert.Equal(t, []core.Result{core.NoMatchesResult()}, ranking.Results)

		ranking, err = r.Rank(ctx, core.Query{Text: "civil engineer", TopK: 3}, core.ModeFallback)
		require.NoError(t, err)
		assert.False(t, ranking.NoMatches)
		assert.Equal(t, []core.Result{{Title: "Civil Engineer", Code: "2", Score: 1}}, ranking.Results)
	})

	t.Run("does not embed", func(t *testing.T) {
		embedder := constantEmbedder()
		r := newTestRanker(t, entries, embedder)
		_, err := r.Rank(ctx, core.Query{Text: "engineer", TopK: 3}, core.ModeFallback)
		require.NoError(t, err)
		assert.Equal(t, 0, embedder.CallCount())
	})
}

func TestRank_DegradesPerCall(t *testing.T) {
	ctx := context.Background()
	query := core.Query{Text: "engineer", TopK: 3}

	tests := []struct {
		name     string
		embedder func() *mock.MockEmbedder
		opts     []Option
	}{
		{
			name: "query embedding fails",
			embedder: func() *mock.MockEmbedder {
				e := mock.NewMockEmbedder()
				e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
					return nil, errors.New("connection refused")
				}
				return e
			},
		},
		{
			name: "candidate embedding fails",
			embedder: func() *mock.MockEmbedder {
				e := mock.NewMockEmbedder()
				e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
					if text == "Nurse" {
						return nil, errors.New("server error")
					}
					return []float32{1, 0}, nil
				}
				return e
			},
		},
		{
			name: "provider times out",
			embedder: func() *mock.MockEmbedder {
				e := mock.NewMockEmbedder()
				e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
					time.Sleep(time.Second)
					return []float32{1, 0}, nil
				}
				return e
			},
			opts: []Option{WithEmbedTimeout(20 * time.Millisecond)},
		},
		{
			name: "dimension mismatch",
			embedder: func() *mock.MockEmbedder {
				e := mock.NewMockEmbedder()
				e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
					if text == "engineer" {
						return []float32{1, 0, 0}, nil
					}
					return []float32{1, 0}, nil
				}
				return e
			},
		},
		{
			name: "empty query embedding",
			embedder: func() *mock.MockEmbedder {
				e := mock.NewMockEmbedder()
				e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
					return []float32{}, nil
				}
				return e
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRanker(t, occupations, tt.embedder(), tt.opts...)
			monitor := &recordingMonitor{}

			ranking, err := r.RankWithMonitor(ctx, query, core.ModeHybrid, monitor)
			require.NoError(t, err)
			assert.True(t, ranking.Degraded)
			assert.Equal(t, core.ModeFallback, ranking.Mode)
			assert.Equal(t, []core.Result{
				{Title: "Software Engineer", Code: "2512.0100", Score: 1},
				{Title: "Civil Engineer", Code: "2142.0100", Score: 1},
			}, ranking.Results)

			require.Len(t, monitor.degraded, 1)
			assert.ErrorIs(t, monitor.degraded[0], core.ErrProviderCall)
		})
	}
}

func TestRank_HybridWithoutEmbedder(t *testing.T) {
	r := newTestRanker(t, occupations, nil)

	ranking, err := r.Rank(context.Background(), core.Query{Text: "nurse", TopK: 3}, core.ModeHybrid)
	require.NoError(t, err)
	assert.True(t, ranking.Degraded)
	assert.Equal(t, []core.Result{{Title: "Nurse", Code: "2221.0100", Score: 1}}, ranking.Results)
}

func TestRank_CallerCancellation(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []float32{1, 0}, nil
	}
	r := newTestRanker(t, occupations, embedder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Rank(ctx, core.Query{Text: "nurse", TopK: 3}, core.ModeHybrid)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRankWithMonitor(t *testing.T) {
	r := newTestRanker(t, occupations, constantEmbedder())
	monitor := &recordingMonitor{}

	ranking, err := r.RankWithMonitor(context.Background(), core.Query{Text: "nurse", TopK: 1}, core.ModeHybrid, monitor)
	require.NoError(t, err)

	assert.Equal(t, 1, monitor.started)
	assert.Equal(t, core.ModeHybrid, monitor.startMode)
	assert.Equal(t, 1, monitor.embedded)
	assert.Equal(t, len(occupations), monitor.scored)
	assert.Empty(t, monitor.degraded)
	assert.Same(t, ranking, monitor.finished)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
