//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"math"
	"sync"
	"unsafe"
)

// FAISSIndex is an exhaustive L2 index backed by FAISS IndexFlatL2. FAISS assigns
// sequential ids, which are used directly as ordinals. A Go-side copy of the vectors
// backs Vector and Snapshot, so persistence uses the same JSON snapshot as FlatIndex.
type FAISSIndex struct {
	index      *C.FaissIndexFlatL2
	dimensions int
	data       []float32
	mu         sync.RWMutex
}

// NewFAISSIndex creates an empty FAISS IndexFlatL2 with the given dimension.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	var index *C.FaissIndexFlatL2
	ret := C.faiss_IndexFlatL2_new_with(&index, C.idx_t(dimensions))
	if ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}

	return &FAISSIndex{
		index:      index,
		dimensions: dimensions,
	}, nil
}

// NewFAISSIndexFromSnapshot rebuilds a FAISS index from s.
func NewFAISSIndexFromSnapshot(s *Snapshot) (*FAISSIndex, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	f, err := NewFAISSIndex(s.Dim)
	if err != nil {
		return nil, err
	}
	if s.NbDocs == 0 {
		return f, nil
	}
	flat := make([]float32, len(s.FlatArray))
	copy(flat, s.FlatArray)
	if err := f.addFlat(flat, s.NbDocs); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// faissLastError returns the last FAISS error message.
func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Add appends vectors after checking every dimension.
func (f *FAISSIndex) Add(ctx context.Context, vectors [][]float32) (int, error) {
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return 0, fmt.Errorf("%w: vector %d has %d dimensions, index expects %d", ErrDimensionMismatch, i, len(vec), f.dimensions)
		}
	}

	// Flatten vectors into contiguous array for FAISS
	n := len(vectors)
	flat := make([]float32, n*f.dimensions)
	for i, vec := range vectors {
		copy(flat[i*f.dimensions:(i+1)*f.dimensions], vec)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	first := len(f.data) / f.dimensions
	if n == 0 {
		return first, nil
	}
	if err := f.addFlatLocked(flat, n); err != nil {
		return 0, err
	}
	return first, nil
}

func (f *FAISSIndex) addFlat(flat []float32, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addFlatLocked(flat, n)
}

func (f *FAISSIndex) addFlatLocked(flat []float32, n int) error {
	ret := C.faiss_Index_add(
		f.index,
		C.idx_t(n),
		(*C.float)(unsafe.Pointer(&flat[0])),
	)
	if ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	f.data = append(f.data, flat...)
	return nil
}

// Search returns the k nearest vectors. FAISS reports squared L2 distances, which are
// converted to Euclidean distances and re-sorted so ties come back in ordinal order.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]VectorResult, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d", ErrDimensionMismatch, len(query), f.dimensions)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	ntotal := int(C.faiss_Index_ntotal(f.index))
	if k <= 0 || ntotal == 0 {
		return []VectorResult{}, nil
	}
	if k > ntotal {
		k = ntotal
	}

	distances := make([]float32, k)
	labels := make([]int64, k)

	ret := C.faiss_Index_search(
		f.index,
		1, // nq (number of queries)
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	results := make([]VectorResult, 0, k)
	for i := 0; i < k; i++ {
		if labels[i] < 0 {
			continue
		}
		results = append(results, VectorResult{
			Ordinal:  int(labels[i]),
			Distance: float64(distances[i]),
		})
	}
	sortResults(results)
	for i := range results {
		results[i].Distance = math.Sqrt(math.Max(0, results[i].Distance))
	}
	return results, nil
}

// Vector returns a copy of the vector at ordinal.
func (f *FAISSIndex) Vector(ordinal int) ([]float32, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if ordinal < 0 || ordinal >= len(f.data)/f.dimensions {
		return nil, false
	}
	out := make([]float32, f.dimensions)
	copy(out, f.data[ordinal*f.dimensions:(ordinal+1)*f.dimensions])
	return out, true
}

// Snapshot returns a copy of the index contents.
func (f *FAISSIndex) Snapshot() *Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	flat := make([]float32, len(f.data))
	copy(flat, f.data)
	return &Snapshot{Dim: f.dimensions, NbDocs: len(f.data) / f.dimensions, FlatArray: flat}
}

// Dimensions returns the vector dimension.
func (f *FAISSIndex) Dimensions() int {
	return f.dimensions
}

// Size returns the number of vectors in the index.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.data) / f.dimensions
}

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
