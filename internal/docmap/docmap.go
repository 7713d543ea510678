// Package docmap records the provenance of every vector in a collection, indexed by
// the vector's ordinal.
package docmap

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/hyperjump/lens/pkg/utils"
)

// ErrOrdinalOutOfRange is returned by Get for an ordinal with no entry.
var ErrOrdinalOutOfRange = errors.New("ordinal out of range")

// Entry is the provenance of one vector. ChunkIndex is 1-based. Text is empty when
// chunk text is not persisted inline. EmbeddedWords is set when the vector was computed
// from only the first EmbeddedWords words of the chunk.
type Entry struct {
	Source        string `json:"source"`
	ChunkIndex    int    `json:"chunkIndex"`
	TotalChunks   int    `json:"totalChunks"`
	Text          string `json:"text,omitempty"`
	EmbeddedWords int    `json:"embeddedWords,omitempty"`
}

// Map is an append-only list of entries. Entry i describes vector ordinal i.
type Map struct {
	entries []Entry
	mu      sync.RWMutex
}

// New returns an empty map.
func New() *Map {
	return &Map{}
}

// FromEntries returns a map holding a copy of entries.
func FromEntries(entries []Entry) *Map {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Map{entries: cp}
}

// Append adds entries and returns the ordinal of the first one.
func (m *Map) Append(entries ...Entry) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	first := len(m.entries)
	m.entries = append(m.entries, entries...)
	return first
}

// Get returns the entry for ordinal.
func (m *Map) Get(ordinal int) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ordinal < 0 || ordinal >= len(m.entries) {
		return Entry{}, fmt.Errorf("%w: %d (map has %d entries)", ErrOrdinalOutOfRange, ordinal, len(m.entries))
	}
	return m.entries[ordinal], nil
}

// Len returns the number of entries.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Entries returns a copy of all entries in ordinal order.
func (m *Map) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// OrdinalsBySource groups ordinals by source id.
func (m *Map) OrdinalsBySource() map[string][]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]int)
	for i, e := range m.entries {
		out[e.Source] = append(out[e.Source], i)
	}
	return out
}

// Save writes the map to path as a JSON list, replacing any previous file atomically.
func (m *Map) Save(path string) error {
	entries := m.Entries()
	data, err := sonic.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode document map: %w", err)
	}
	return utils.WriteFileAtomic(path, data, 0644)
}

// Load reads a map written by Save. A missing file returns an error satisfying
// errors.Is(err, os.ErrNotExist).
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document map: %w", err)
	}
	var entries []Entry
	if err := sonic.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode document map %s: %w", path, err)
	}
	return &Map{entries: entries}, nil
}
