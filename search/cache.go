package search

import (
	"errors"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

// EmbeddingCache stores embedding vectors keyed by normalized text.
// Implementations must be safe for concurrent use. Two callers racing on
// the same miss may both store a vector; the later write wins.
type EmbeddingCache interface {
	Get(text string) ([]float32, bool)
	Set(text string, vector []float32)
	Close()
}

// mapCache is an unbounded process-local cache.
type mapCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

var _ EmbeddingCache = (*mapCache)(nil)

// NewMapCache returns an unbounded in-memory cache, suited to short-lived
// processes and tenants with small knowledge bases.
func NewMapCache() EmbeddingCache {
	return &mapCache{vectors: make(map[string][]float32)}
}

func (c *mapCache) Get(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vectors[text]
	return v, ok
}

func (c *mapCache) Set(text string, vector []float32) {
	c.mu.Lock()
	c.vectors[text] = vector
	c.mu.Unlock()
}

func (c *mapCache) Close() {}

// boundedCache caps the number of cached vectors for long-running servers.
type boundedCache struct {
	cache *ristretto.Cache[string, []float32]
}

var _ EmbeddingCache = (*boundedCache)(nil)

// NewBoundedCache returns a cache holding at most maxEntries vectors,
// evicting by frequency and recency.
func NewBoundedCache(maxEntries int64) (EmbeddingCache, error) {
	if maxEntries < 1 {
		return nil, errors.New("bounded cache needs a positive size")
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, []float32]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &boundedCache{cache: cache}, nil
}

func (c *boundedCache) Get(text string) ([]float32, bool) {
	return c.cache.Get(text)
}

// Set stores the vector with unit cost and waits for the write to land so a
// following Get observes it.
func (c *boundedCache) Set(text string, vector []float32) {
	if c.cache.Set(text, vector, 1) {
		c.cache.Wait()
	}
}

func (c *boundedCache) Close() {
	c.cache.Close()
}
