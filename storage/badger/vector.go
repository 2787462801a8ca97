package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/occusearch/core"
	"github.com/poiesic/occusearch/storage"
)

// VectorRepository implements storage.VectorRepository for BadgerDB.
type VectorRepository struct {
	backend *Backend
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) (*VectorRepository, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	return &VectorRepository{
		backend: backend,
	}, nil
}

// Close releases resources. VectorRepository has no resources to release;
// the backend is closed by its owner.
func (r *VectorRepository) Close() error {
	return nil
}

// GetVector retrieves the vector stored for (modelID, title).
func (r *VectorRepository) GetVector(ctx context.Context, modelID, title string) (*core.CachedVector, error) {
	var result *core.CachedVector

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorKey(modelID, title))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			vector, err := storage.UnmarshalCachedVector(val)
			if err != nil {
				return err
			}
			// Hash collision: the stored vector belongs to another pair
			if vector.ModelID != modelID || vector.Title != title {
				return storage.ErrNotFound
			}
			result = vector
			return nil
		})
	}, false)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// PutVectors stores vectors, overwriting existing entries for the same pair.
func (r *VectorRepository) PutVectors(ctx context.Context, vectors ...*core.CachedVector) error {
	for _, v := range vectors {
		if v == nil || v.ModelID == "" || len(v.Vector) == 0 {
			return fmt.Errorf("%w: vector requires a model id and components", storage.ErrInvalidRecord)
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, v := range vectors {
			if err := tx.Set(makeVectorKey(v.ModelID, v.Title), storage.MarshalCachedVector(v)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// CountVectors returns the number of vectors stored for modelID.
func (r *VectorRepository) CountVectors(ctx context.Context, modelID string) (int, error) {
	return r.backend.CountPrefix(makeModelPrefix(modelID))
}

// PurgeModel removes all vectors stored for modelID.
func (r *VectorRepository) PurgeModel(ctx context.Context, modelID string) (int, error) {
	prefix := makeModelPrefix(modelID)
	count, err := r.backend.CountPrefix(prefix)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	if err := r.backend.DropPrefix(prefix); err != nil {
		return 0, err
	}
	return count, nil
}
