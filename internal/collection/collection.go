// Package collection binds a vector index, its document map and a manifest into one
// named unit that is appended to in lockstep and persisted as a whole.
package collection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/lens/internal/docmap"
	"github.com/hyperjump/lens/internal/vector"
)

var (
	// ErrNotFound is returned for a collection that is neither loaded nor on disk.
	ErrNotFound = errors.New("collection not found")
	// ErrInvalidName is returned for a name that cannot be used as a file name prefix.
	ErrInvalidName = errors.New("invalid collection name")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName accepts letters, digits, '_' and '-'. Anything else could leave the
// index directory once the name becomes a path.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

const (
	vectorsSuffix  = ".vectors.json"
	docmapSuffix   = ".docmap.json"
	manifestSuffix = ".manifest.json"
)

// Collection is a vector index plus the document map entry of every vector.
// Invariant: index.Size() == docs.Len().
type Collection struct {
	manifest Manifest
	index    vector.VectorIndex
	docs     *docmap.Map
	mu       sync.Mutex
}

// New creates an empty collection described by m.
func New(m Manifest) (*Collection, error) {
	if err := ValidateName(m.Name); err != nil {
		return nil, err
	}
	idx, err := vector.NewVectorIndex(m.IndexType, m.Dim)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return &Collection{manifest: m, index: idx, docs: docmap.New()}, nil
}

// Append adds vectors and their entries together. Either both are appended or neither is.
func (c *Collection) Append(ctx context.Context, vectors [][]float32, entries []docmap.Entry) (int, error) {
	if len(vectors) != len(entries) {
		return 0, fmt.Errorf("vectors and entries length mismatch: %d vs %d", len(vectors), len(entries))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	first, err := c.index.Add(ctx, vectors)
	if err != nil {
		return 0, err
	}
	if mapFirst := c.docs.Append(entries...); mapFirst != first {
		return 0, fmt.Errorf("collection %s out of lockstep: index ordinal %d, map ordinal %d", c.manifest.Name, first, mapFirst)
	}
	c.manifest.UpdatedAt = time.Now()
	return first, nil
}

// Search runs a k-nearest-neighbour search over the collection's vectors.
func (c *Collection) Search(ctx context.Context, query []float32, k int) ([]vector.VectorResult, error) {
	return c.index.Search(ctx, query, k)
}

// Entry returns the document map entry for ordinal.
func (c *Collection) Entry(ordinal int) (docmap.Entry, error) {
	return c.docs.Get(ordinal)
}

// Manifest returns a copy of the collection manifest.
func (c *Collection) Manifest() Manifest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manifest
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.manifest.Name }

// Size returns the number of vectors.
func (c *Collection) Size() int { return c.index.Size() }

// Sources returns the set of source document ids present in the collection.
func (c *Collection) Sources() map[string]bool {
	out := make(map[string]bool)
	for src := range c.docs.OrdinalsBySource() {
		out[src] = true
	}
	return out
}

// DocumentVectors returns, per source document, the mean of its chunk vectors.
func (c *Collection) DocumentVectors() map[string][]float32 {
	out := make(map[string][]float32)
	for src, ordinals := range c.docs.OrdinalsBySource() {
		vecs := make([][]float32, 0, len(ordinals))
		for _, ord := range ordinals {
			if v, ok := c.index.Vector(ord); ok {
				vecs = append(vecs, v)
			}
		}
		if mean := vector.Mean(vecs); mean != nil {
			out[src] = mean
		}
	}
	return out
}

// Clone returns an independent copy that can be appended to while readers keep using c.
func (c *Collection) Clone() (*Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, err := vector.FromSnapshot(c.manifest.IndexType, c.index.Snapshot())
	if err != nil {
		return nil, err
	}
	return &Collection{manifest: c.manifest, index: idx, docs: docmap.FromEntries(c.docs.Entries())}, nil
}

// Save writes the snapshot, document map and manifest into dir. The manifest is written
// last, so a collection is only listed once its data files are complete.
func (c *Collection) Save(dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.index.Snapshot()
	if snap.NbDocs != c.docs.Len() {
		return fmt.Errorf("collection %s out of lockstep: %d vectors, %d map entries", c.manifest.Name, snap.NbDocs, c.docs.Len())
	}
	vp, mp, manp := Paths(dir, c.manifest.Name)
	if err := vector.SaveSnapshot(vp, snap); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	if err := c.docs.Save(mp); err != nil {
		return fmt.Errorf("save document map: %w", err)
	}
	if err := saveManifest(manp, &c.manifest); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

// Close releases the vector index.
func (c *Collection) Close() error {
	return c.index.Close()
}

// Load reads the named collection from dir and checks that the snapshot and map agree.
func Load(dir, name string) (*Collection, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	vp, mp, manp := Paths(dir, name)
	m, err := loadManifest(manp)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	snap, err := vector.LoadSnapshot(vp)
	if err != nil {
		return nil, err
	}
	docs, err := docmap.Load(mp)
	if err != nil {
		return nil, err
	}
	if snap.NbDocs != docs.Len() {
		return nil, fmt.Errorf("collection %s is inconsistent: %d vectors, %d map entries", name, snap.NbDocs, docs.Len())
	}
	if snap.Dim != m.Dim {
		return nil, fmt.Errorf("collection %s is inconsistent: snapshot dim %d, manifest dim %d", name, snap.Dim, m.Dim)
	}
	idx, err := vector.FromSnapshot(m.IndexType, snap)
	if err != nil {
		return nil, err
	}
	return &Collection{manifest: *m, index: idx, docs: docs}, nil
}

// Paths returns the vector snapshot, document map and manifest paths of a collection.
func Paths(dir, name string) (vectors, docs, manifest string) {
	return filepath.Join(dir, name+vectorsSuffix),
		filepath.Join(dir, name+docmapSuffix),
		filepath.Join(dir, name+manifestSuffix)
}

// List returns the names of the collections saved in dir, sorted.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), manifestSuffix) {
			names = append(names, strings.TrimSuffix(e.Name(), manifestSuffix))
		}
	}
	sort.Strings(names)
	return names, nil
}
