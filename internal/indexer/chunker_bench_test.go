package indexer

import (
	"strings"
	"testing"
)

func BenchmarkChunk(b *testing.B) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 2000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Chunk("bench", text, ChunkParams{Size: 50})
	}
}
