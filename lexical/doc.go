// Package lexical scores the surface-text similarity of occupation titles.
//
// TokenSortRatio is order-insensitive: both inputs are split on whitespace,
// their tokens sorted and re-joined, and the normalized indel similarity of
// the two resulting strings is returned in [0, 1]. Fold applies the
// Unicode normalization and case folding that callers use before comparing
// a query against a catalog title.
package lexical
