package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hyperjump/lens/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage_CRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	doc := &models.Document{
		ID:       "doc1",
		Title:    "Title",
		Content:  "Content",
		Metadata: map[string]interface{}{"interests": []string{"ai", "go"}, "tone": "calm"},
	}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Title" || got.Content != "Content" {
		t.Errorf("got %+v", got)
	}
	if labels := got.Labels("interests"); len(labels) != 2 || labels[0] != "ai" {
		t.Errorf("interests after round trip = %v", labels)
	}
	if labels := got.Labels("tone"); len(labels) != 1 || labels[0] != "calm" {
		t.Errorf("tone after round trip = %v", labels)
	}

	doc.Title = "Updated"
	if err := store.UpdateDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetDocument(ctx, "doc1")
	if got.Title != "Updated" {
		t.Errorf("expected Updated, got %s", got.Title)
	}

	if err := store.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	if _, err = store.GetDocument(ctx, "doc1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := store.UpdateDocument(ctx, doc); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of deleted doc: err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_Upsert(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := store.UpsertDocument(ctx, &models.Document{ID: id, Content: "v1 " + id}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.UpsertDocument(ctx, &models.Document{ID: "a", Content: "v2 a"}); err != nil {
		t.Fatal(err)
	}
	docs, err := store.ListDocuments(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[0].Content != "v2 a" {
		t.Errorf("after upsert: %+v", docs)
	}
	if docs[0].Metadata != nil {
		t.Errorf("nil metadata should stay nil, got %v", docs[0].Metadata)
	}
}

func TestSQLiteStorage_ListPagesInInsertionOrder(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		if err := store.CreateDocument(ctx, &models.Document{ID: fmt.Sprintf("d%d", i), Content: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	var ids []string
	for offset := 0; ; offset += 3 {
		page, err := store.ListDocuments(ctx, offset, 3)
		if err != nil {
			t.Fatal(err)
		}
		if len(page) == 0 {
			break
		}
		for _, d := range page {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) != 7 {
		t.Fatalf("paged %d docs, want 7", len(ids))
	}
	for i, id := range ids {
		if id != fmt.Sprintf("d%d", i) {
			t.Errorf("position %d = %s", i, id)
		}
	}
	n, err := store.CountDocuments(ctx)
	if err != nil || n != 7 {
		t.Errorf("CountDocuments = %d, %v", n, err)
	}
}

func TestSQLiteStorage_ReopenKeepsSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "docs.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.CreateDocument(context.Background(), &models.Document{ID: "keep", Content: "x"}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	var version int
	if err := store.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != len(migrations) {
		t.Errorf("user_version = %d, want %d", version, len(migrations))
	}
	if _, err := store.GetDocument(context.Background(), "keep"); err != nil {
		t.Errorf("document lost across reopen: %v", err)
	}
}
