package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// FlatIndex is a pure Go exhaustive L2 index. Vectors are kept in one contiguous
// row-major array, which is also its snapshot layout.
type FlatIndex struct {
	dimensions int
	data       []float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

// NewFlatIndexFromSnapshot rebuilds a flat index from s without re-embedding.
func NewFlatIndexFromSnapshot(s *Snapshot) (*FlatIndex, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	data := make([]float32, len(s.FlatArray))
	copy(data, s.FlatArray)
	return &FlatIndex{dimensions: s.Dim, data: data}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeFlat)
}

// Add appends vectors after checking every dimension.
func (f *FlatIndex) Add(ctx context.Context, vectors [][]float32) (int, error) {
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return 0, fmt.Errorf("%w: vector %d has %d dimensions, index expects %d", ErrDimensionMismatch, i, len(vec), f.dimensions)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	first := len(f.data) / f.dimensions
	for _, vec := range vectors {
		f.data = append(f.data, vec...)
	}
	return first, nil
}

// Search scans every stored vector.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]VectorResult, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d", ErrDimensionMismatch, len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := len(f.data) / f.dimensions
	if k <= 0 || n == 0 {
		return []VectorResult{}, nil
	}
	results := make([]VectorResult, n)
	for i := 0; i < n; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := f.data[i*f.dimensions : (i+1)*f.dimensions]
		results[i] = VectorResult{Ordinal: i, Distance: squaredL2(query, row)}
	}
	sortResults(results)
	if k > n {
		k = n
	}
	results = results[:k]
	for i := range results {
		results[i].Distance = math.Sqrt(results[i].Distance)
	}
	return results, nil
}

// Vector returns a copy of the vector at ordinal.
func (f *FlatIndex) Vector(ordinal int) ([]float32, bool) {
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
func (f *FlatIndex) Snapshot() *Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	flat := make([]float32, len(f.data))
	copy(flat, f.data)
	return &Snapshot{Dim: f.dimensions, NbDocs: len(f.data) / f.dimensions, FlatArray: flat}
}

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.data) / f.dimensions
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// sortResults orders by distance ascending, then by ordinal.
func sortResults(results []VectorResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Ordinal < results[j].Ordinal
	})
}
