package indexer

import (
	"fmt"
	"strings"
	"testing"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestChunk_sizes(t *testing.T) {
	tests := []struct {
		name  string
		words int
		size  int
		want  []int
	}{
		{"120 words by 50", 120, 50, []int{50, 50, 20}},
		{"exact multiple", 100, 50, []int{50, 50}},
		{"shorter than size", 7, 50, []int{7}},
		{"default size", 51, 0, []int{50, 1}},
		{"size one", 3, 1, []int{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk("doc", words(tt.words), ChunkParams{Size: tt.size})
			if len(chunks) != len(tt.want) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tt.want))
			}
			for i, ch := range chunks {
				if ch.WordCount != tt.want[i] {
					t.Errorf("chunk %d: %d words, want %d", i, ch.WordCount, tt.want[i])
				}
				if ch.Index != i+1 {
					t.Errorf("chunk %d: Index=%d, want %d", i, ch.Index, i+1)
				}
				if ch.TotalChunks != len(tt.want) {
					t.Errorf("chunk %d: TotalChunks=%d, want %d", i, ch.TotalChunks, len(tt.want))
				}
				if ch.SourceID != "doc" {
					t.Errorf("chunk %d: SourceID=%s", i, ch.SourceID)
				}
			}
		})
	}
}

func TestChunk_reconstructsText(t *testing.T) {
	text := "  the quick\tbrown fox\n\njumps over the lazy dog  "
	chunks := Chunk("d", text, ChunkParams{Size: 4})
	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = ch.Text
	}
	if got, want := strings.Join(parts, " "), strings.Join(strings.Fields(text), " "); got != want {
		t.Errorf("reconstructed %q, want %q", got, want)
	}
}

func TestChunk_deterministic(t *testing.T) {
	text := words(137)
	a := Chunk("d", text, ChunkParams{Size: 25})
	b := Chunk("d", text, ChunkParams{Size: 25})
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestChunk_empty(t *testing.T) {
	for _, text := range []string{"", "   \n\t  "} {
		if chunks := Chunk("d", text, ChunkParams{Size: 5}); chunks != nil {
			t.Errorf("Chunk(%q) = %v, want nil", text, chunks)
		}
	}
}

func TestChunk_hardCap(t *testing.T) {
	chunks := Chunk("d", words(25), ChunkParams{Size: 10, HardCap: 8})
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	want := []int{8, 8, 5}
	for i, ch := range chunks {
		if ch.WordCount != want[i] {
			t.Errorf("chunk %d: %d words, want %d", i, ch.WordCount, want[i])
		}
	}
	if chunks[1].Text != strings.Join(strings.Fields(words(25))[10:18], " ") {
		t.Errorf("hard cap should keep the head of the chunk, got %q", chunks[1].Text)
	}
}

func TestChunkAt(t *testing.T) {
	text := words(120)
	ch, ok := ChunkAt("d", text, ChunkParams{Size: 50}, 3)
	if !ok || ch.WordCount != 20 {
		t.Errorf("ChunkAt(3) = %+v, %v", ch, ok)
	}
	if _, ok := ChunkAt("d", text, ChunkParams{Size: 50}, 4); ok {
		t.Error("ChunkAt(4) should be out of range")
	}
	if _, ok := ChunkAt("d", text, ChunkParams{Size: 50}, 0); ok {
		t.Error("ChunkAt(0) should be out of range")
	}
}

func TestPreprocess(t *testing.T) {
	if Preprocess("  a  b  ") != "a b" {
		t.Error("expected trimmed and collapsed spaces")
	}
}
