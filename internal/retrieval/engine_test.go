package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/lens/internal/collection"
	"github.com/hyperjump/lens/internal/docmap"
	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/storage"
	"github.com/hyperjump/lens/internal/vector"
)

// staticEmbedder maps every query to the same vector.
type staticEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (s *staticEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

func newTestStore(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newCollection(t *testing.T, storesText bool, vectors [][]float32, entries []docmap.Entry) *collection.Collection {
	t.Helper()
	c, err := collection.New(collection.Manifest{Name: "docs", Dim: 2, Model: "mock", ChunkSize: 3, StoresText: storesText})
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) > 0 {
		if _, err := c.Append(context.Background(), vectors, entries); err != nil {
			t.Fatal(err)
		}
	}
	return c
}

func newEngine(t *testing.T, c *collection.Collection, store storage.Storage, emb QueryEmbedder) *Engine {
	t.Helper()
	registry := collection.NewRegistry(t.TempDir())
	registry.Publish(c)
	return NewEngine(registry, store, emb)
}

func TestEngine_Retrieve_inlineText(t *testing.T) {
	c := newCollection(t, true,
		[][]float32{{0, 0}, {1, 0}, {5, 5}},
		[]docmap.Entry{
			{Source: "a", ChunkIndex: 1, TotalChunks: 2, Text: "first chunk"},
			{Source: "a", ChunkIndex: 2, TotalChunks: 2, Text: "second chunk"},
			{Source: "b", ChunkIndex: 1, TotalChunks: 1, Text: "far away"},
		})
	emb := &staticEmbedder{vec: []float32{0.9, 0}}
	e := newEngine(t, c, newTestStore(t), emb)

	resp, err := e.Retrieve(context.Background(), "what", "docs", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Text != "second chunk" || resp.Results[1].Text != "first chunk" {
		t.Errorf("order = %q, %q", resp.Results[0].Text, resp.Results[1].Text)
	}
	if resp.Results[0].Distance > resp.Results[1].Distance {
		t.Error("results should be ordered by ascending distance")
	}
	if resp.Results[0].SourceID != "a" || resp.Results[0].ChunkIndex != 2 || resp.Results[0].TotalChunks != 2 {
		t.Errorf("result = %+v", resp.Results[0])
	}
	if resp.Collection != "docs" || resp.Query != "what" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestEngine_Retrieve_recomputesText(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateDocument(ctx, &models.Document{ID: "a", Content: "one two three four five"}); err != nil {
		t.Fatal(err)
	}
	c := newCollection(t, false,
		[][]float32{{0, 0}, {1, 1}, {2, 2}, {3, 3}},
		[]docmap.Entry{
			{Source: "a", ChunkIndex: 1, TotalChunks: 2},
			{Source: "a", ChunkIndex: 2, TotalChunks: 2},
			{Source: "missing", ChunkIndex: 1, TotalChunks: 1},
			{Source: "a", ChunkIndex: 7, TotalChunks: 7},
		})
	e := newEngine(t, c, store, &staticEmbedder{vec: []float32{0, 0}})

	resp, err := e.Retrieve(ctx, "q", "docs", 10)
	if err != nil {
		t.Fatal(err)
	}
	var texts []string
	for _, r := range resp.Results {
		texts = append(texts, r.Text)
	}
	if got := strings.Join(texts, "|"); got != "one two three|four five" {
		t.Errorf("texts = %q", got)
	}
	if resp.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", resp.Skipped)
	}
}

func TestEngine_Retrieve_recomputedTextMatchesEmbeddedPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateDocument(ctx, &models.Document{ID: "a", Content: "one two three four five"}); err != nil {
		t.Fatal(err)
	}
	// The first chunk was embedded from its first two words only.
	c := newCollection(t, false,
		[][]float32{{0, 0}, {1, 1}},
		[]docmap.Entry{
			{Source: "a", ChunkIndex: 1, TotalChunks: 2, EmbeddedWords: 2},
			{Source: "a", ChunkIndex: 2, TotalChunks: 2},
		})
	e := newEngine(t, c, store, &staticEmbedder{vec: []float32{0, 0}})

	resp, err := e.Retrieve(ctx, "q", "docs", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Text != "one two" {
		t.Errorf("truncated chunk text = %q, want %q", resp.Results[0].Text, "one two")
	}
	if resp.Results[1].Text != "four five" {
		t.Errorf("untruncated chunk text = %q", resp.Results[1].Text)
	}
}

// brokenCollection reports hits whose ordinals the document map does not hold.
type brokenCollection struct{}

func (brokenCollection) Search(ctx context.Context, q []float32, k int) ([]vector.VectorResult, error) {
	return []vector.VectorResult{{Ordinal: 0, Distance: 0.1}, {Ordinal: 9, Distance: 0.2}}, nil
}

func (brokenCollection) Entry(ordinal int) (docmap.Entry, error) {
	if ordinal == 0 {
		return docmap.Entry{Source: "a", ChunkIndex: 1, TotalChunks: 1, Text: "ok"}, nil
	}
	return docmap.Entry{}, docmap.ErrOrdinalOutOfRange
}

func (brokenCollection) Manifest() collection.Manifest { return collection.Manifest{Name: "broken"} }

func TestEngine_Retrieve_skipsBadOrdinals(t *testing.T) {
	e := NewEngine(collection.NewRegistry(t.TempDir()), nil, &staticEmbedder{vec: []float32{0, 0}})
	e.lookup = func(string) (searchable, error) { return brokenCollection{}, nil }

	resp, err := e.Retrieve(context.Background(), "q", "broken", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Skipped != 1 {
		t.Errorf("results = %d, skipped = %d", len(resp.Results), resp.Skipped)
	}
}

func TestEngine_Retrieve_emptyResults(t *testing.T) {
	c := newCollection(t, true, nil, nil)
	emb := &staticEmbedder{vec: []float32{0, 0}}
	e := newEngine(t, c, newTestStore(t), emb)

	resp, err := e.Retrieve(context.Background(), "q", "docs", 3)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Results == nil || !resp.Empty() {
		t.Errorf("want empty non-nil results, got %#v", resp.Results)
	}

	resp, err = e.Retrieve(context.Background(), "q", "docs", 0)
	if err != nil || resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("k=0: resp = %+v, err = %v", resp, err)
	}
	if emb.calls != 1 {
		t.Errorf("k=0 should not embed, calls = %d", emb.calls)
	}
}

func TestEngine_Retrieve_errors(t *testing.T) {
	c := newCollection(t, true, [][]float32{{0, 0}}, []docmap.Entry{{Source: "a", ChunkIndex: 1, TotalChunks: 1, Text: "x"}})
	ctx := context.Background()

	e := newEngine(t, c, newTestStore(t), &staticEmbedder{vec: []float32{0, 0}})
	if _, err := e.Retrieve(ctx, "", "docs", 1); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
	if _, err := e.Retrieve(ctx, "q", "nope", 1); !errors.Is(err, collection.ErrNotFound) {
		t.Errorf("err = %v, want collection.ErrNotFound", err)
	}

	embErr := errors.New("provider down")
	e = newEngine(t, c, newTestStore(t), &staticEmbedder{err: embErr})
	if _, err := e.Retrieve(ctx, "q", "docs", 1); !errors.Is(err, embErr) {
		t.Errorf("err = %v, want provider error", err)
	}

	e = newEngine(t, c, newTestStore(t), &staticEmbedder{vec: []float32{0, 0, 0}})
	if _, err := e.Retrieve(ctx, "q", "docs", 1); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestEngine_Query_defaults(t *testing.T) {
	c, err := collection.New(collection.Manifest{Name: "default", Dim: 2, Model: "mock", StoresText: true})
	if err != nil {
		t.Fatal(err)
	}
	vecs := make([][]float32, 8)
	entries := make([]docmap.Entry, 8)
	for i := range vecs {
		vecs[i] = []float32{float32(i), 0}
		entries[i] = docmap.Entry{Source: "s", ChunkIndex: i + 1, TotalChunks: 8, Text: "t"}
	}
	if _, err := c.Append(context.Background(), vecs, entries); err != nil {
		t.Fatal(err)
	}
	registry := collection.NewRegistry(t.TempDir())
	registry.Publish(c)
	e := NewEngine(registry, nil, &staticEmbedder{vec: []float32{0, 0}}, WithLimits(3, 6))

	tests := []struct {
		k, want int
	}{{0, 3}, {2, 2}, {50, 6}}
	for _, tt := range tests {
		resp, err := e.Query(context.Background(), &models.QueryRequest{Question: "q", K: tt.k})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Results) != tt.want || resp.Collection != "default" {
			t.Errorf("k=%d: got %d results from %s, want %d", tt.k, len(resp.Results), resp.Collection, tt.want)
		}
	}
	if _, err := e.Query(context.Background(), &models.QueryRequest{}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncate me", 5, "trunc..."},
		{"héllo wörld", 4, "héll..."},
		{"no limit", 0, "no limit"},
	}
	for _, tt := range tests {
		if got := Snippet(tt.in, tt.max); got != tt.want {
			t.Errorf("Snippet(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
