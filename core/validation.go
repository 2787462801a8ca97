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

import (
	"fmt"
	"strings"
)

// ValidateQuery validates a Query according to the search contract.
//
// Validation rules:
//   - Text must not be empty or whitespace only
//   - TopK must be positive
//
// TopK larger than the catalog is valid; the whole catalog is returned.
func ValidateQuery(q Query) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, ErrEmptyQuery)
	}
	if q.TopK <= 0 {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidArgument, ErrInvalidTopK, q.TopK)
	}
	return nil
}

// ValidateCatalogEntry validates a CatalogEntry.
//
// Validation rules:
//   - Title must not be empty after trimming
//
// NOT validated:
//   - Code (empty and duplicate codes are legal)
func ValidateCatalogEntry(entry CatalogEntry) error {
	if strings.TrimSpace(entry.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyTitle)
	}
	return nil
}
