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


package search

import "errors"

var (
	// ErrIndexRequired is returned when a candidate index is not provided.
	ErrIndexRequired = errors.New("candidate index required")

	// ErrControllerRequired is returned when a degradation controller is not provided.
	ErrControllerRequired = errors.New("degradation controller required")

	// ErrNotProbed is returned when a service is built before the controller
	// has finished probing the embedding provider.
	ErrNotProbed = errors.New("embedding provider has not been probed")

	// ErrInvalidWeights is returned for negative or non-finite fusion weights.
	ErrInvalidWeights = errors.New("invalid fusion weights")

	// ErrDimensionMismatch is returned when query and candidate embeddings
	// have different lengths.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
