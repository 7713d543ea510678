// Package vector provides append-only exhaustive nearest-neighbour indexes addressed by ordinal.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// VectorIndex is an append-only vector store. Every added vector gets the next
// ordinal (0-based); ordinals are never reused and there is no update or delete.
type VectorIndex interface {
	// Add appends vectors and returns the ordinal of the first one. If any vector has the
	// wrong dimension nothing is added.
	Add(ctx context.Context, vectors [][]float32) (first int, err error)
	// Search returns up to k nearest vectors by Euclidean distance, ascending; ties are
	// broken by ordinal. k <= 0 or an empty index yields no results.
	Search(ctx context.Context, query []float32, k int) ([]VectorResult, error)
	// Vector returns a copy of the stored vector at ordinal.
	Vector(ordinal int) ([]float32, bool)
	Snapshot() *Snapshot
	Dimensions() int
	Size() int
	Type() string
	Close() error
}

// VectorResult is a single search hit.
type VectorResult struct {
	Ordinal  int     `json:"ordinal"`
	Distance float64 `json:"distance"`
}
