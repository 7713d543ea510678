// Package embedding provides embedding providers, a retrying wrapper that shrinks
// over-long input, and an LRU cache for query vectors.
package embedding

import "context"

// Embedder produces fixed-dimension vectors for text. A single Embed call is one
// provider round trip; failures are classified with ErrInputTooLong and ErrTransient.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Model() string
	Close() error
}
