package collection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/lens/internal/docmap"
	"github.com/hyperjump/lens/internal/vector"
)

func testManifest(name string) Manifest {
	return Manifest{Name: name, Dim: 2, Model: "mock", ChunkSize: 50, StoresText: true}
}

func newTestCollection(t *testing.T) *Collection {
	t.Helper()
	c, err := New(testManifest("default"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Append(context.Background(),
		[][]float32{{0, 0}, {2, 0}, {10, 10}},
		[]docmap.Entry{
			{Source: "a", ChunkIndex: 1, TotalChunks: 2, Text: "a one"},
			{Source: "a", ChunkIndex: 2, TotalChunks: 2, Text: "a two"},
			{Source: "b", ChunkIndex: 1, TotalChunks: 1, Text: "b one"},
		})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCollection_AppendLockstep(t *testing.T) {
	c := newTestCollection(t)
	ctx := context.Background()

	first, err := c.Append(ctx, [][]float32{{1, 1}}, []docmap.Entry{{Source: "c", ChunkIndex: 1, TotalChunks: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if first != 3 {
		t.Errorf("first = %d, want 3", first)
	}

	_, err = c.Append(ctx, [][]float32{{1, 1}, {1, 2, 3}}, []docmap.Entry{{Source: "d"}, {Source: "d"}})
	if !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
	if _, err := c.Append(ctx, [][]float32{{1, 1}}, nil); err == nil {
		t.Error("expected error for mismatched lengths")
	}
	if c.Size() != 4 || c.docs.Len() != 4 {
		t.Errorf("size=%d map=%d, want 4/4", c.Size(), c.docs.Len())
	}
	e, err := c.Entry(3)
	if err != nil || e.Source != "c" {
		t.Errorf("Entry(3) = %+v, %v", e, err)
	}
}

func TestCollection_DocumentVectors(t *testing.T) {
	c := newTestCollection(t)
	dv := c.DocumentVectors()
	if len(dv) != 2 {
		t.Fatalf("got %d document vectors", len(dv))
	}
	if a := dv["a"]; a[0] != 1 || a[1] != 0 {
		t.Errorf("mean of a = %v, want [1 0]", a)
	}
	if b := dv["b"]; b[0] != 10 {
		t.Errorf("mean of b = %v", b)
	}
	if src := c.Sources(); !src["a"] || !src["b"] || len(src) != 2 {
		t.Errorf("Sources = %v", src)
	}
}

func TestCollection_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	c := newTestCollection(t)
	if err := c.Save(dir); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"default.vectors.json", "default.docmap.json", "default.manifest.json"} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}

	loaded, err := Load(dir, "default")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 3 || loaded.docs.Len() != 3 {
		t.Fatalf("loaded size=%d map=%d", loaded.Size(), loaded.docs.Len())
	}
	m := loaded.Manifest()
	if m.Model != "mock" || m.ChunkSize != 50 || m.Dim != 2 {
		t.Errorf("manifest = %+v", m)
	}
	results, err := loaded.Search(context.Background(), []float32{2, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	e, _ := loaded.Entry(results[0].Ordinal)
	if e.Text != "a two" {
		t.Errorf("nearest entry = %+v", e)
	}

	names, err := List(dir)
	if err != nil || len(names) != 1 || names[0] != "default" {
		t.Errorf("List = %v, %v", names, err)
	}
}

func TestLoad_inconsistent(t *testing.T) {
	dir := t.TempDir()
	c := newTestCollection(t)
	if err := c.Save(dir); err != nil {
		t.Fatal(err)
	}
	_, mp, _ := Paths(dir, "default")
	short := docmap.New()
	short.Append(docmap.Entry{Source: "a", ChunkIndex: 1, TotalChunks: 1})
	if err := short.Save(mp); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, "default"); err == nil {
		t.Error("expected error when vector count and map length differ")
	}
}

func TestLoad_notFound(t *testing.T) {
	if _, err := Load(t.TempDir(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCollection_CloneIsIndependent(t *testing.T) {
	c := newTestCollection(t)
	clone, err := c.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := clone.Append(context.Background(), [][]float32{{5, 5}}, []docmap.Entry{{Source: "z"}}); err != nil {
		t.Fatal(err)
	}
	if c.Size() != 3 || clone.Size() != 4 {
		t.Errorf("original=%d clone=%d", c.Size(), clone.Size())
	}
}

func TestManifest_CheckCompatible(t *testing.T) {
	base := testManifest("x")
	tests := []struct {
		name   string
		modify func(m *Manifest)
		ok     bool
	}{
		{"same", func(m *Manifest) {}, true},
		{"dimension", func(m *Manifest) { m.Dim = 3 }, false},
		{"model", func(m *Manifest) { m.Model = "other" }, false},
		{"chunk size", func(m *Manifest) { m.ChunkSize = 40 }, false},
		{"hard cap", func(m *Manifest) { m.HardCap = 10 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			tt.modify(&other)
			err := base.CheckCompatible(&other)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrManifestMismatch) {
				t.Errorf("err = %v, want ErrManifestMismatch", err)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	dir := t.TempDir()
	saved := newTestCollection(t)
	if err := saved.Save(dir); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(dir)
	defer r.Close()
	c, err := r.Get("default")
	if err != nil {
		t.Fatal(err)
	}
	if c.Size() != 3 {
		t.Errorf("size = %d", c.Size())
	}
	if again, _ := r.Get("default"); again != c {
		t.Error("second Get should return the cached collection")
	}
	if r.Exists("missing") {
		t.Error("missing collection should not exist")
	}

	next, _ := New(testManifest("fresh"))
	r.Publish(next)
	names, err := r.Names()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "default" || names[1] != "fresh" {
		t.Errorf("Names = %v", names)
	}

	old := c
	replacement, _ := c.Clone()
	_, _ = replacement.Append(context.Background(), [][]float32{{3, 3}}, []docmap.Entry{{Source: "n"}})
	r.Publish(replacement)
	if cur, _ := r.Get("default"); cur.Size() != 4 {
		t.Errorf("published size = %d, want 4", cur.Size())
	}
	if old.Size() != 3 {
		t.Error("readers of the old collection should be unaffected")
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"default", true},
		{"my_docs-2", true},
		{"", false},
		{"../x", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"with space", false},
		{"dot.name", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if (err == nil) != tt.ok {
				t.Fatalf("ValidateName(%q) = %v, want ok=%v", tt.name, err, tt.ok)
			}
			if err != nil && !errors.Is(err, ErrInvalidName) {
				t.Errorf("err = %v, want ErrInvalidName", err)
			}
		})
	}
}

func TestInvalidNameNeverTouchesDisk(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "index")
	if _, err := New(testManifest("../escaped")); !errors.Is(err, ErrInvalidName) {
		t.Errorf("New: err = %v, want ErrInvalidName", err)
	}
	if _, err := Load(dir, "../escaped"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Load: err = %v, want ErrInvalidName", err)
	}
	if _, err := NewRegistry(dir).Get("a/b"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Registry.Get: err = %v, want ErrInvalidName", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escaped"+manifestSuffix)); !os.IsNotExist(err) {
		t.Errorf("file created outside the index dir: %v", err)
	}
}
