package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrModelMismatch is returned when the embedder's model differs from
	// the model the index was built for.
	ErrModelMismatch = errors.New("embedder model does not match index model")

	// ErrCountMismatch is returned when a batch yields a different number
	// of embeddings than titles.
	ErrCountMismatch = errors.New("embedding count mismatch")
)
