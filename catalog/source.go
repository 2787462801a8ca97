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


package catalog

import (
	"context"
	"errors"

	"github.com/poiesic/occusearch/core"
)

var (
	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("required column not found")

	// ErrNoInfile is returned when a control file names no data file.
	ErrNoInfile = errors.New("control file has no INFILE clause")

	// ErrInvalidDelimiter is returned for delimiters that are not a single character.
	ErrInvalidDelimiter = errors.New("delimiter must be a single character")
)

// Source produces catalog entries.
type Source interface {
	Load(ctx context.Context) ([]core.CatalogEntry, error)
}

// Default header names of the occupation catalog extract.
const (
	DefaultTitleColumn = "occupation_title"
	DefaultCodeColumn  = "nco_code"
)

// Columns names the header fields holding the title and code.
type Columns struct {
	Title string
	Code  string
}

// DefaultColumns returns the standard occupation_title/nco_code pair.
func DefaultColumns() Columns {
	return Columns{Title: DefaultTitleColumn, Code: DefaultCodeColumn}
}
