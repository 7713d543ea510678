package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/lens/internal/fileid"
	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/storage"
)

func TestIngester_IngestDocument(t *testing.T) {
	store := newTestStore(t)
	in := NewIngester(store)
	ctx := context.Background()

	doc, err := in.IngestDocument(ctx, &models.DocumentInput{Content: "  hello \n  world  "})
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID == "" || doc.Content != "hello world" {
		t.Errorf("doc = %+v", doc)
	}

	page, err := in.IngestDocument(ctx, &models.DocumentInput{
		Content:  "a post",
		Metadata: map[string]interface{}{models.MetaURL: "https://example.com/post/"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if page.ID != fileid.PageDocID("https://example.com/post") {
		t.Errorf("page id = %s", page.ID)
	}

	if _, err := in.IngestDocument(ctx, &models.DocumentInput{Content: "  "}); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("err = %v, want ErrEmptyDocument", err)
	}
}

func TestIngester_IngestFile(t *testing.T) {
	store := newTestStore(t)
	in := NewIngester(store)
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("first version"), 0644); err != nil {
		t.Fatal(err)
	}

	ok, err := in.IngestFile(ctx, path, []string{".md"})
	if err != nil || !ok {
		t.Fatalf("IngestFile = %v, %v", ok, err)
	}
	ok, err = in.IngestFile(ctx, path, []string{".md"})
	if err != nil || ok {
		t.Errorf("unchanged file should be skipped: %v, %v", ok, err)
	}

	if err := os.WriteFile(path, []byte("second version, longer"), 0644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	if ok, err := in.IngestFile(ctx, path, nil); err != nil || !ok {
		t.Fatalf("changed file should be re-ingested: %v, %v", ok, err)
	}
	abs, _ := filepath.Abs(path)
	doc, err := store.GetDocument(ctx, fileid.FileDocID(abs))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "second version, longer" || doc.Title != "notes.md" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.Metadata[models.MetaSource] != abs {
		t.Errorf("source_path = %v", doc.Metadata[models.MetaSource])
	}

	if _, err := in.IngestFile(ctx, path, []string{".txt"}); err == nil {
		t.Error("expected error for disallowed extension")
	}

	if err := in.RemoveFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, fileid.FileDocID(abs)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestIngester_IngestDirectory(t *testing.T) {
	store := newTestStore(t)
	in := NewIngester(store)
	dir := t.TempDir()
	files := map[string]string{
		"a.txt":        "alpha",
		"b.md":         "beta",
		"skip.bin":     "binary",
		"empty.txt":    "",
		"sub/c.txt":    "gamma",
		"sub/deep.rst": "delta",
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	n, err := in.IngestDirectory(context.Background(), dir, []string{".txt", ".md"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("ingested %d files, want 3", n)
	}
	count, err := store.CountDocuments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("stored %d documents, want 3", count)
	}

	if _, err := in.IngestDirectory(context.Background(), filepath.Join(dir, "a.txt"), nil); err == nil {
		t.Error("expected error for a file path")
	}
}

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt"}, true},
		{".TXT", []string{"txt"}, true},
		{".md", []string{".MD", ".txt"}, true},
		{".pdf", []string{".txt"}, false},
		{"", []string{".txt"}, false},
	}
	for _, tt := range tests {
		if got := extensionAllowed(tt.ext, tt.allowed); got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}
