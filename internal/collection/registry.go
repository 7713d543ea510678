package collection

import (
	"errors"
	"sort"
	"sync"
)

// Registry holds the published collections of one index directory. Readers get the
// collection pointer current at the time of Get; Publish swaps in a new one without
// disturbing them.
type Registry struct {
	dir         string
	collections map[string]*Collection
	mu          sync.RWMutex
}

// NewRegistry returns a registry backed by dir. Collections are loaded lazily.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir, collections: make(map[string]*Collection)}
}

// Dir returns the index directory.
func (r *Registry) Dir() string { return r.dir }

// Get returns the published collection, loading it from disk on first use.
func (r *Registry) Get(name string) (*Collection, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	r.mu.RLock()
	c, ok := r.collections[name]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.collections[name]; ok {
		return c, nil
	}
	c, err := Load(r.dir, name)
	if err != nil {
		return nil, err
	}
	r.collections[name] = c
	return c, nil
}

// Publish makes c the current collection under its name.
func (r *Registry) Publish(c *Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[c.Name()] = c
}

// Names returns the names of all collections on disk or published, sorted.
func (r *Registry) Names() ([]string, error) {
	onDisk, err := List(r.dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(onDisk))
	for _, n := range onDisk {
		seen[n] = true
	}
	r.mu.RLock()
	for n := range r.collections {
		seen[n] = true
	}
	r.mu.RUnlock()
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether the named collection is published or on disk.
func (r *Registry) Exists(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// Close closes every loaded collection.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, c := range r.collections {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.collections, name)
	}
	return errors.Join(errs...)
}
