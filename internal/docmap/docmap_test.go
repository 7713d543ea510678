package docmap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMap_AppendGet(t *testing.T) {
	m := New()
	if first := m.Append(Entry{Source: "a", ChunkIndex: 1, TotalChunks: 2}, Entry{Source: "a", ChunkIndex: 2, TotalChunks: 2}); first != 0 {
		t.Errorf("first = %d", first)
	}
	if first := m.Append(Entry{Source: "b", ChunkIndex: 1, TotalChunks: 1, Text: "hello"}); first != 2 {
		t.Errorf("first = %d, want 2", first)
	}
	e, err := m.Get(2)
	if err != nil {
		t.Fatal(err)
	}
	if e.Source != "b" || e.Text != "hello" {
		t.Errorf("Get(2) = %+v", e)
	}
	for _, ord := range []int{-1, 3} {
		if _, err := m.Get(ord); !errors.Is(err, ErrOrdinalOutOfRange) {
			t.Errorf("Get(%d) err = %v, want ErrOrdinalOutOfRange", ord, err)
		}
	}
	groups := m.OrdinalsBySource()
	if len(groups["a"]) != 2 || groups["b"][0] != 2 {
		t.Errorf("OrdinalsBySource = %v", groups)
	}
}

func TestMap_SaveLoad(t *testing.T) {
	m := New()
	m.Append(
		Entry{Source: "doc-1", ChunkIndex: 1, TotalChunks: 1, Text: "only chunk"},
		Entry{Source: "doc-2", ChunkIndex: 1, TotalChunks: 3},
	)
	path := filepath.Join(t.TempDir(), "default.docmap.json")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("Len = %d", loaded.Len())
	}
	got := loaded.Entries()
	want := m.Entries()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoad_missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestFromEntries_copies(t *testing.T) {
	entries := []Entry{{Source: "a", ChunkIndex: 1, TotalChunks: 1}}
	m := FromEntries(entries)
	entries[0].Source = "changed"
	if e, _ := m.Get(0); e.Source != "a" {
		t.Error("FromEntries should copy its input")
	}
}
