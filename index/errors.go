package index

import "errors"

var (
	// ErrIndexClosed is returned by operations on an index after Shutdown.
	ErrIndexClosed = errors.New("index is closed")

	// ErrEntryOutOfRange is returned when an entry position does not exist.
	ErrEntryOutOfRange = errors.New("entry position out of range")

	// ErrNoEmbedder is returned when an embedding is requested from an index
	// built without an embedding provider.
	ErrNoEmbedder = errors.New("index has no embedder")
)
