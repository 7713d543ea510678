//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import (
	"context"
	"errors"
)

var errNoFAISS = errors.New("FAISS not available: build with -tags=faiss and install FAISS library")

// FAISSIndex is a stub that returns an error when FAISS is not available.
// Build with -tags=faiss to enable FAISS support.
type FAISSIndex struct{}

// NewFAISSIndex returns an error because FAISS is not available.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	return nil, errNoFAISS
}

// NewFAISSIndexFromSnapshot returns an error because FAISS is not available.
func NewFAISSIndexFromSnapshot(s *Snapshot) (*FAISSIndex, error) {
	return nil, errNoFAISS
}

func (f *FAISSIndex) Add(ctx context.Context, vectors [][]float32) (int, error) {
	return 0, errNoFAISS
}

func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]VectorResult, error) {
	return nil, errNoFAISS
}

func (f *FAISSIndex) Vector(ordinal int) ([]float32, bool) { return nil, false }
func (f *FAISSIndex) Snapshot() *Snapshot                  { return &Snapshot{} }
func (f *FAISSIndex) Dimensions() int                      { return 0 }
func (f *FAISSIndex) Size() int                            { return 0 }
func (f *FAISSIndex) Close() error                         { return nil }

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
