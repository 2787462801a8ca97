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
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/occusearch/core"
)

// float32Size is the fixed encoded size of a vector component.
var float32Size = raw.Float32.Size(0)

// MarshalCachedVector serializes a CachedVector to bytes.
// Layout: model id, title, component count, raw float32 components.
func MarshalCachedVector(v *core.CachedVector) []byte {
	count := uint64(len(v.Vector))
	size := ord.String.Size(v.ModelID) +
		ord.String.Size(v.Title) +
		varint.Uint64.Size(count) +
		len(v.Vector)*float32Size

	buf := make([]byte, size)
	n := ord.String.Marshal(v.ModelID, buf)
	n += ord.String.Marshal(v.Title, buf[n:])
	n += varint.Uint64.Marshal(count, buf[n:])
	for _, f := range v.Vector {
		n += raw.Float32.Marshal(f, buf[n:])
	}
	return buf
}

// UnmarshalCachedVector deserializes a CachedVector from bytes.
func UnmarshalCachedVector(data []byte) (*core.CachedVector, error) {
	modelID, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: model id: %w", ErrSerializationFailed, err)
	}
	offset := n

	title, n, err := ord.String.Unmarshal(data[offset:])
	if err != nil {
		return nil, fmt.Errorf("%w: title: %w", ErrSerializationFailed, err)
	}
	offset += n

	count, n, err := varint.Uint64.Unmarshal(data[offset:])
	if err != nil {
		return nil, fmt.Errorf("%w: vector length: %w", ErrSerializationFailed, err)
	}
	offset += n

	remaining := uint64(len(data) - offset)
	if count*uint64(float32Size) > remaining || count > remaining {
		return nil, fmt.Errorf("%w: need %d components, have %d bytes", ErrTruncatedData, count, remaining)
	}

	vector := make([]float32, count)
	for i := range vector {
		f, n, err := raw.Float32.Unmarshal(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("%w: component %d: %w", ErrSerializationFailed, i, err)
		}
		vector[i] = f
		offset += n
	}

	return &core.CachedVector{
		ModelID: modelID,
		Title:   title,
		Vector:  vector,
	}, nil
}
