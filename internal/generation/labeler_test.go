package generation

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/storage"
)

// scriptedGenerator answers by the first line of the prompt.
type scriptedGenerator struct {
	answers map[string]string
	err     error
	calls   int
}

func (s *scriptedGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	for prefix, answer := range s.answers {
		if strings.HasPrefix(user, prefix) {
			return answer, nil
		}
	}
	return "", nil
}

func newStore(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLabeler_LabelDocument(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	doc := &models.Document{ID: "d1", Title: "Go tips", Content: "Some text about go."}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	gen := &scriptedGenerator{answers: map[string]string{
		"List the topics":        `["Go", "programming"]`,
		"Name the tone":          "friendly",
		"List the audience":      "I cannot tell\nsorry",
		"Summarize this page in": "A page about go.",
	}}
	lb := NewLabeler(gen, store, []string{"interests", "tone", "segments", "summary"})

	written, err := lb.LabelDocument(ctx, doc, false)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(written, []string{"interests", "tone", "summary"}) {
		t.Errorf("written = %v", written)
	}
	got, err := store.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Labels("interests"), []string{"go", "programming"}) {
		t.Errorf("interests = %v", got.Metadata["interests"])
	}
	if got.Metadata["tone"] != "friendly" || got.Metadata["summary"] != "A page about go" {
		t.Errorf("metadata = %v", got.Metadata)
	}
	if _, ok := got.Metadata["segments"]; ok {
		t.Error("unparseable field should stay unset")
	}

	gen.calls = 0
	if _, err := lb.LabelDocument(ctx, got, false); err != nil {
		t.Fatal(err)
	}
	if gen.calls != 1 {
		t.Errorf("calls = %d, want 1 (only the missing segments field)", gen.calls)
	}
}

func TestLabeler_Enrich(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := store.CreateDocument(ctx, &models.Document{ID: id, Content: "content " + id}); err != nil {
			t.Fatal(err)
		}
	}
	gen := &scriptedGenerator{answers: map[string]string{"List the topics": `["x"]`}}
	lb := NewLabeler(gen, store, []string{"interests"})
	report, err := lb.Enrich(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.Documents != 3 || report.Updated != 3 || report.Failed != 0 {
		t.Errorf("report = %+v", report)
	}

	report, err = lb.Enrich(ctx, false)
	if err != nil || report.Updated != 0 {
		t.Errorf("second run = %+v, %v", report, err)
	}

	gen.err = errors.New("boom")
	report, err = lb.Enrich(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 3 {
		t.Errorf("failed = %d, want 3", report.Failed)
	}
}

func TestPrompt(t *testing.T) {
	doc := &models.Document{Title: "T", Content: strings.Repeat("a", promptChars+100)}
	p := Prompt("interests", doc)
	if !strings.HasPrefix(p, fieldPrompts["interests"]) || !strings.Contains(p, "Title: T") {
		t.Errorf("prompt = %.80s", p)
	}
	if len(p) > promptChars+200 {
		t.Errorf("prompt not truncated: %d bytes", len(p))
	}
	if !strings.HasPrefix(Prompt("moods", doc), "List the moods") {
		t.Error("unknown fields should get a generic prompt")
	}
}
