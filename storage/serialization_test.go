package storage

import (
	"testing"

	"github.com/poiesic/occusearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalCachedVector(t *testing.T) {
	tests := []struct {
		name   string
		vector *core.CachedVector
	}{
		{
			name: "typical",
			vector: &core.CachedVector{
				ModelID: "paraphrase-multilingual-minilm",
				Title:   "Software Engineer",
				Vector:  []float32{0.1, -0.2, 0.3, 0.0},
			},
		},
		{
			name: "non-latin title",
			vector: &core.CachedVector{
				ModelID: "m",
				Title:   "सॉफ्टवेयर अभियंता",
				Vector:  []float32{1},
			},
		},
		{
			name: "empty vector",
			vector: &core.CachedVector{
				ModelID: "m",
				Title:   "Nurse",
				Vector:  []float32{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalCachedVector(tt.vector)
			decoded, err := UnmarshalCachedVector(data)
			require.NoError(t, err)
			assert.Equal(t, tt.vector, decoded)
		})
	}
}

func TestUnmarshalCachedVector_Truncated(t *testing.T) {
	data := MarshalCachedVector(&core.CachedVector{
		ModelID: "m",
		Title:   "Civil Engineer",
		Vector:  []float32{0.5, 0.25, 0.125},
	})

	t.Run("empty", func(t *testing.T) {
		_, err := UnmarshalCachedVector(nil)
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("missing components", func(t *testing.T) {
		_, err := UnmarshalCachedVector(data[:len(data)-4])
		assert.ErrorIs(t, err, ErrTruncatedData)
	})
}
