// Package reembed precomputes catalog embeddings ahead of the first search.
//
// Without warm-up, the first hybrid query embeds every catalog title one
// at a time. The Reembedder instead sends pending titles to the embedding
// provider in batches on a worker pool, retrying failed batches with
// exponential backoff and reporting progress. Results populate the index
// and, through it, the persistent vector cache.
package reembed
