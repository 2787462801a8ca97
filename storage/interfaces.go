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


package storage

import (
	"context"

	"github.com/poiesic/occusearch/core"
)

// Repository holds the operations shared by every storage-backed repository.
type Repository interface {
	// Close closes the storage backend and releases resources.
	Close() error
}

// VectorCache is the lookup surface the candidate index needs from a
// persistent embedding store.
type VectorCache interface {
	// GetVector retrieves the embedding of title produced by modelID.
	// Returns ErrNotFound if no vector is stored for the pair.
	GetVector(ctx context.Context, modelID, title string) (*core.CachedVector, error)

	// PutVectors stores one or more embeddings, replacing existing ones for
	// the same (model, title) pair.
	PutVectors(ctx context.Context, vectors ...*core.CachedVector) error
}

// VectorRepository persists catalog embeddings across process restarts.
// Vectors are partitioned by model identity so that a model change never
// serves stale embeddings.
type VectorRepository interface {
	Repository
	VectorCache

	// CountVectors returns the number of vectors stored for modelID.
	CountVectors(ctx context.Context, modelID string) (int, error)

	// PurgeModel removes every vector stored for modelID and returns how
	// many were removed.
	PurgeModel(ctx context.Context, modelID string) (int, error)
}
