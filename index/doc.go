// Package index holds the candidate catalog searched by the ranker.
//
// An Index is built once per catalog load from a slice of entries and owns
// their embeddings. Embeddings start absent and are computed on first use,
// at most once per distinct title for the lifetime of the index, even when
// many goroutines ask for the same entry at the same time. An optional
// storage.VectorCache persists embeddings across restarts; entries are keyed
// by the embedder's model identity, so a model change starts a fresh epoch.
//
// Every query scans the whole catalog. Index is the seam behind which an
// approximate nearest neighbor structure could be placed for large
// catalogs.
package index
