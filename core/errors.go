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


package core

import "errors"

// Search domain errors
var (
	// ErrEmptyCatalog indicates that a catalog load produced no entries.
	ErrEmptyCatalog = errors.New("catalog is empty")

	// ErrInvalidArgument indicates a search request violated its contract.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyQuery indicates the query text is empty after trimming.
	ErrEmptyQuery = errors.New("query text cannot be empty")

	// ErrInvalidTopK indicates a non-positive result count.
	ErrInvalidTopK = errors.New("top_k must be greater than 0")

	// ErrProviderUnavailable indicates the embedding provider could not be
	// acquired or failed its startup probe.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrProviderCall indicates an embedding call failed after the provider
	// was believed to be ready.
	ErrProviderCall = errors.New("embedding provider call failed")

	// ErrInvalidEntry indicates a catalog entry failed validation.
	ErrInvalidEntry = errors.New("invalid catalog entry")

	// ErrEmptyTitle indicates a catalog entry has no title.
	ErrEmptyTitle = errors.New("title cannot be empty")
)
