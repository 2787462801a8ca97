package reembed

import "github.com/poiesic/occusearch/index"

const (
	// DefaultBatchSize is the default number of titles per embedding request
	DefaultBatchSize = 64
)

// TitleIterator walks the titles of an index that still lack an embedding.
type TitleIterator struct {
	index     *index.Index
	batchSize int
}

// NewTitleIterator creates an iterator over the pending titles of idx.
func NewTitleIterator(idx *index.Index, batchSize int) *TitleIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &TitleIterator{
		index:     idx,
		batchSize: batchSize,
	}
}

// Batches snapshots the pending titles and splits them into batches.
func (it *TitleIterator) Batches() [][]string {
	pending := it.index.Pending()
	var batches [][]string
	for i := 0; i < len(pending); i += it.batchSize {
		end := min(i+it.batchSize, len(pending))
		batches = append(batches, pending[i:end])
	}
	return batches
}
