// Package embedcache holds every node's embedding vector in memory,
// keyed by node ID. It is rebuilt from pkg/store on startup and kept in
// lock-step with writes afterward. Retrieval and the duplicate check do
// not read it: they query pkg/ann, which keeps its own copy of each vector.
package embedcache

import (
	"sync"

	"github.com/hippograph/core/pkg/store"
)

// Cache is a thread-safe id -> embedding map.
type Cache struct {
	mu      sync.RWMutex
	vectors map[store.NodeID][]float32
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{vectors: make(map[store.NodeID][]float32)}
}

// Put stores (or replaces) the embedding for id. The slice is retained,
// not copied; callers must not mutate it afterward.
func (c *Cache) Put(id store.NodeID, embedding []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors[id] = embedding
}

// Get returns the embedding for id, if present.
func (c *Cache) Get(id store.NodeID) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vectors[id]
	return v, ok
}

// Delete removes id's embedding.
func (c *Cache) Delete(id store.NodeID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.vectors, id)
}

// Len returns the number of cached embeddings.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// All calls fn for every cached (id, embedding) pair. fn must not call
// back into the cache; All holds the read lock for its duration.
func (c *Cache) All(fn func(store.NodeID, []float32)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id, v := range c.vectors {
		fn(id, v)
	}
}

// Rebuild clears the cache and reloads it from every node in eng that
// carries a non-empty embedding.
func Rebuild(eng *store.Engine) (*Cache, error) {
	c := New()
	err := eng.IterNodes(func(n *store.Node) error {
		if len(n.Embedding) > 0 {
			c.Put(n.ID, n.Embedding)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
