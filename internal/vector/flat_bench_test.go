package vector

import (
	"context"
	"testing"
)

func BenchmarkFlatIndexSearch(b *testing.B) {
	idx, _ := NewFlatIndex(384)
	ctx := context.Background()
	vecs := make([][]float32, 1000)
	for i := range vecs {
		vecs[i] = make([]float32, 384)
		vecs[i][0] = float32(i) / 1000
	}
	_, _ = idx.Add(ctx, vecs)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10)
	}
}

func BenchmarkSnapshotRoundTrip(b *testing.B) {
	idx, _ := NewFlatIndex(64)
	vecs := make([][]float32, 500)
	for i := range vecs {
		vecs[i] = make([]float32, 64)
		vecs[i][i%64] = 1
	}
	_, _ = idx.Add(context.Background(), vecs)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = NewFlatIndexFromSnapshot(idx.Snapshot())
	}
}
