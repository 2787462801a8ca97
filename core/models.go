package core

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier derived from content.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// VectorKey returns the cache key for the embedding of title produced by
// the model identified by modelID. Changing the model changes every key.
func VectorKey(modelID, title string) ID {
	return IDFromContent(modelID + "|" + title)
}

// CatalogEntry is a standardized occupation record.
// Codes are not required to be unique; duplicates rank independently.
type CatalogEntry struct {
	Title string // Canonical occupation name, any language or script
	Code  string // Classification code (e.g. an NCO code)
}

// CachedVector is the persisted form of an entry embedding.
type CachedVector struct {
	ModelID string
	Title   string
	Vector  []float32
}

// Mode selects the scoring strategy used for a search.
type Mode int

const (
	// ModeFallback scores by case-insensitive substring containment only.
	ModeFallback Mode = iota
	// ModeHybrid fuses embedding similarity with lexical similarity.
	ModeHybrid
)

// String returns the lowercase name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeHybrid:
		return "hybrid"
	case ModeFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Query is a single search request.
type Query struct {
	Text string
	TopK int
}

// Result is one ranked catalog entry.
// Semantic and Lexical hold the fused components and are zero in fallback mode.
type Result struct {
	Title    string
	Code     string
	Score    float64
	Semantic float64
	Lexical  float64
}

const (
	// NoMatchesTitle is the title of the sentinel row returned when a
	// fallback search matches nothing.
	NoMatchesTitle = "No matches found"

	// SearchErrorTitle is the title of the sentinel row rendered when a
	// search fails unexpectedly.
	SearchErrorTitle = "Search error"

	// SentinelCode is the code carried by sentinel rows.
	SentinelCode = "N/A"
)

// NoMatchesResult returns the sentinel row for an empty fallback search.
func NoMatchesResult() Result {
	return Result{Title: NoMatchesTitle, Code: SentinelCode}
}

// SearchErrorResult returns the sentinel row for a failed search.
func SearchErrorResult() Result {
	return Result{Title: SearchErrorTitle, Code: SentinelCode}
}

// IsSentinel reports whether r is one of the sentinel rows.
func (r Result) IsSentinel() bool {
	return r.Code == SentinelCode && (r.Title == NoMatchesTitle || r.Title == SearchErrorTitle)
}

// Status classifies a Response for presentation layers.
type Status string

const (
	StatusOK              Status = "ok"
	StatusNoMatches       Status = "no_matches"
	StatusInvalidArgument Status = "invalid_argument"
	StatusError           Status = "error"
)

// Response is the structured outcome of a search that callers can render
// without inspecting errors.
type Response struct {
	Status   Status
	Message  string
	Mode     Mode
	Degraded bool // Hybrid mode was selected but this call was scored in fallback
	Results  []Result
}
