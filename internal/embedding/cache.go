package embedding

import (
	"container/list"
	"sync"
)

// QueryCache keeps the most recently used query vectors. Vectors are copied on
// the way in and out so callers may modify what they get back.
type QueryCache struct {
	mu      sync.Mutex
	limit   int
	items   map[string]*list.Element
	order   *list.List // front is most recent
	hits    uint64
	misses  uint64
	evicted uint64
}

type cachedQuery struct {
	text   string
	vector []float32
}

// CacheStats counts lookups since the cache was created.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Evicted uint64
	Size    int
}

// NewQueryCache returns a cache holding at most limit vectors. A limit of zero or
// less disables caching.
func NewQueryCache(limit int) *QueryCache {
	return &QueryCache{
		limit: limit,
		items: make(map[string]*list.Element),
		order: list.New(),
	}
}

// Lookup returns a copy of the vector stored for text.
func (c *QueryCache) Lookup(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return cloneVector(el.Value.(*cachedQuery).vector), true
}

// Store records vector for text and drops the least recently used entry once the
// limit is exceeded.
func (c *QueryCache) Store(text string, vector []float32) {
	if c.limit <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[text]; ok {
		el.Value.(*cachedQuery).vector = cloneVector(vector)
		c.order.MoveToFront(el)
		return
	}
	c.items[text] = c.order.PushFront(&cachedQuery{text: text, vector: cloneVector(vector)})
	for c.order.Len() > c.limit {
		tail := c.order.Back()
		c.order.Remove(tail)
		delete(c.items, tail.Value.(*cachedQuery).text)
		c.evicted++
	}
}

// Len returns the number of cached vectors.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the counters.
func (c *QueryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Evicted: c.evicted, Size: c.order.Len()}
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
