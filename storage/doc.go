// Package storage defines persistence interfaces for catalog embeddings.
//
// Embeddings are expensive to compute and immutable for a given model, so
// they are cached on disk keyed by (model identity, title). The badger
// subpackage provides the BadgerDB-backed implementation; the wire format
// is produced with mus-go serializers in this package.
package storage
