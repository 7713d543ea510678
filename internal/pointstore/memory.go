package pointstore

import (
	"context"
	"fmt"
	"sync"
)

type memoryCollection struct {
	dim    int
	points map[string]*Point
}

// MemoryStore keeps points in process memory.
type MemoryStore struct {
	collections map[string]*memoryCollection
	mu          sync.RWMutex
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (m *MemoryStore) CollectionExists(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[name]
	return ok, nil
}

func (m *MemoryStore) CreateCollection(_ context.Context, name string, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		m.collections[name] = &memoryCollection{dim: dim, points: make(map[string]*Point)}
	}
	return nil
}

func (m *MemoryStore) Upsert(_ context.Context, collection string, p *Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.collection(collection)
	if err != nil {
		return err
	}
	if p.Vector != nil && len(p.Vector) != c.dim {
		return fmt.Errorf("point %s has %d dimensions, collection %s expects %d", p.ID, len(p.Vector), collection, c.dim)
	}
	c.points[p.ID] = clonePoint(p)
	return nil
}

func (m *MemoryStore) Retrieve(_ context.Context, collection, id string) (*Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.collection(collection)
	if err != nil {
		return nil, err
	}
	p, ok := c.points[id]
	if !ok {
		return nil, nil
	}
	return clonePoint(p), nil
}

func (m *MemoryStore) SetPayloadOnly(_ context.Context, collection, id string, payload Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.collection(collection)
	if err != nil {
		return err
	}
	p, ok := c.points[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPointNotFound, id)
	}
	p.Payload = clonePayload(payload)
	return nil
}

func (m *MemoryStore) Search(_ context.Context, collection string, query []float32, k int) ([]ScoredPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.collection(collection)
	if err != nil {
		return nil, err
	}
	points := make([]*Point, 0, len(c.points))
	for _, p := range c.points {
		points = append(points, p)
	}
	return rankPoints(points, query, k), nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) collection(name string) (*memoryCollection, error) {
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}
