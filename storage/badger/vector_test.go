package badger

import (
	"bytes"
	"context"
	"testing"

	"github.com/poiesic/occusearch/core"
	"github.com/poiesic/occusearch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorKeys(t *testing.T) {
	a := makeVectorKey("model-a", "Nurse")
	b := makeVectorKey("model-b", "Nurse")
	c := makeVectorKey("model-a", "Midwife")

	assert.True(t, bytes.HasPrefix(a, makeModelPrefix("model-a")))
	assert.True(t, bytes.HasPrefix(c, makeModelPrefix("model-a")))
	assert.False(t, bytes.HasPrefix(b, makeModelPrefix("model-a")))
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, makeVectorKey("model-a", "Nurse"))
}

func TestVectorRepositoryBasics(t *testing.T) {
	repo, backend, err := NewMemoryVectorRepository()
	require.NoError(t, err)
	defer func() {
		repo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	_, err = repo.GetVector(ctx, "model", "Software Engineer")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	want := &core.CachedVector{
		ModelID: "model",
		Title:   "Software Engineer",
		Vector:  []float32{0.6, 0.8},
	}
	require.NoError(t, repo.PutVectors(ctx, want))

	got, err := repo.GetVector(ctx, "model", "Software Engineer")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Same title under another model is a different entry
	_, err = repo.GetVector(ctx, "other-model", "Software Engineer")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVectorRepositoryOverwrite(t *testing.T) {
	repo, backend, err := NewMemoryVectorRepository()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, repo.PutVectors(ctx, &core.CachedVector{ModelID: "m", Title: "Nurse", Vector: []float32{1, 0}}))
	require.NoError(t, repo.PutVectors(ctx, &core.CachedVector{ModelID: "m", Title: "Nurse", Vector: []float32{0, 1}}))

	got, err := repo.GetVector(ctx, "m", "Nurse")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, got.Vector)

	count, err := repo.CountVectors(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestVectorRepositoryInvalid(t *testing.T) {
	repo, backend, err := NewMemoryVectorRepository()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	tests := []struct {
		name   string
		vector *core.CachedVector
	}{
		{"nil", nil},
		{"no model", &core.CachedVector{Title: "Nurse", Vector: []float32{1}}},
		{"no components", &core.CachedVector{ModelID: "m", Title: "Nurse"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.PutVectors(ctx, tt.vector)
			assert.ErrorIs(t, err, storage.ErrInvalidRecord)
		})
	}
}

func TestVectorRepositoryCountAndPurge(t *testing.T) {
	repo, backend, err := NewMemoryVectorRepository()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, repo.PutVectors(ctx,
		&core.CachedVector{ModelID: "old", Title: "Nurse", Vector: []float32{1}},
		&core.CachedVector{ModelID: "old", Title: "Teacher", Vector: []float32{1}},
		&core.CachedVector{ModelID: "new", Title: "Nurse", Vector: []float32{1}},
	))

	count, err := repo.CountVectors(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	removed, err := repo.PurgeModel(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err = repo.CountVectors(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = repo.CountVectors(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	removed, err = repo.PurgeModel(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestVectorRepositoryPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	repo, err := NewVectorRepository(backend)
	require.NoError(t, err)
	require.NoError(t, repo.PutVectors(ctx, &core.CachedVector{ModelID: "m", Title: "Electrician", Vector: []float32{0.5}}))
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()
	repo, err = NewVectorRepository(backend)
	require.NoError(t, err)

	got, err := repo.GetVector(ctx, "m", "Electrician")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, got.Vector)
}

func TestNewVectorRepository_NilBackend(t *testing.T) {
	_, err := NewVectorRepository(nil)
	assert.Error(t, err)
}
