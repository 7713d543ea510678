package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/lens/pkg/utils"
)

// MockEmbedder derives a unit vector from the FNV hash of the text, so equal texts
// always embed identically. It needs no model and is used by tests and offline runs.
// A positive word limit makes it reject longer input with ErrInputTooLong.
type MockEmbedder struct {
	dim      int
	maxWords int
}

// NewMockEmbedder returns a mock of the given dimension; dimension 0 means 384.
func NewMockEmbedder(dimensions, maxWords int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dim: dimensions, maxWords: maxWords}
}

func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.maxWords > 0 {
		if n := len(SplitWords(text)); n > e.maxWords {
			return nil, fmt.Errorf("%w: %d words, limit %d", ErrInputTooLong, n, e.maxWords)
		}
	}
	state := HashString(text)
	vec := make([]float32, e.dim)
	for i := range vec {
		// splitmix64 step, mapped to [-1, 1)
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		vec[i] = float32(z>>40)/float32(1<<23) - 1
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

func (e *MockEmbedder) Dimensions() int { return e.dim }

func (e *MockEmbedder) Model() string { return "mock" }

func (e *MockEmbedder) Close() error { return nil }
