// Package graphcache holds the graph's edges in memory as a bidirectional
// adjacency list, so spreading activation never has to round-trip to
// pkg/store mid-query. It is rebuilt from the store on startup and
// mutated in lock-step with store writes afterward.
package graphcache

import (
	"sync"

	"github.com/hippograph/core/pkg/store"
)

// Neighbor is one edge endpoint as seen from the other endpoint.
type Neighbor struct {
	ID     store.NodeID
	Weight float64
	Type   store.EdgeType
	EdgeID store.EdgeID
}

// Cache is a thread-safe, bidirectional adjacency list.
type Cache struct {
	mu    sync.RWMutex
	edges map[store.NodeID][]Neighbor
	count int
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{edges: make(map[store.NodeID][]Neighbor)}
}

// Build replaces the cache contents with all. Each edge is recorded on
// both endpoints and Neighbor carries no direction, so every edge,
// temporal_chain included, looks the same from either end.
func (c *Cache) Build(all []*store.Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edges = make(map[store.NodeID][]Neighbor, len(all))
	c.count = 0
	for _, e := range all {
		c.addLocked(e)
	}
}

// AddEdge records a single new edge on both endpoints.
func (c *Cache) AddEdge(e *store.Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLocked(e)
}

func (c *Cache) addLocked(e *store.Edge) {
	c.edges[e.Source] = append(c.edges[e.Source], Neighbor{ID: e.Target, Weight: e.Weight, Type: e.Type, EdgeID: e.ID})
	c.edges[e.Target] = append(c.edges[e.Target], Neighbor{ID: e.Source, Weight: e.Weight, Type: e.Type, EdgeID: e.ID})
	c.count++
}

// Upsert records e if its EdgeID isn't already present on both endpoints,
// or updates the existing entries' weight/type otherwise. Used after a
// store mutation whose caller doesn't know in advance whether it created
// a new edge or reweighted an existing one, such as entity-link merging.
func (c *Cache) Upsert(e *store.Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if updateInPlace(c.edges[e.Source], e) && updateInPlace(c.edges[e.Target], e) {
		return
	}
	c.addLocked(e)
}

func updateInPlace(neighbors []Neighbor, e *store.Edge) bool {
	for i := range neighbors {
		if neighbors[i].EdgeID == e.ID {
			neighbors[i].Weight = e.Weight
			neighbors[i].Type = e.Type
			return true
		}
	}
	return false
}

// RemoveEdge drops an edge from both endpoints' neighbor lists.
func (c *Cache) RemoveEdge(e *store.Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edges[e.Source] = removeByEdgeID(c.edges[e.Source], e.ID)
	c.edges[e.Target] = removeByEdgeID(c.edges[e.Target], e.ID)
	c.count--
}

func removeByEdgeID(neighbors []Neighbor, id store.EdgeID) []Neighbor {
	out := neighbors[:0]
	for _, n := range neighbors {
		if n.EdgeID != id {
			out = append(out, n)
		}
	}
	return out
}

// UpdateWeight rewrites the weight recorded for edgeID on both endpoints,
// used after the sleep cycle's stale-edge decay pass.
func (c *Cache) UpdateWeight(source, target store.NodeID, edgeID store.EdgeID, weight float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	setWeight(c.edges[source], edgeID, weight)
	setWeight(c.edges[target], edgeID, weight)
}

func setWeight(neighbors []Neighbor, id store.EdgeID, weight float64) {
	for i := range neighbors {
		if neighbors[i].EdgeID == id {
			neighbors[i].Weight = weight
		}
	}
}

// Neighbors returns nodeID's neighbors. The returned slice is a copy; the
// caller may freely mutate or retain it.
func (c *Cache) Neighbors(nodeID store.NodeID) []Neighbor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src := c.edges[nodeID]
	out := make([]Neighbor, len(src))
	copy(out, src)
	return out
}

// Stats reports the cache's current size, matching the original
// implementation's enabled/edge_count/node_count/avg_degree snapshot.
type Stats struct {
	EdgeCount int
	NodeCount int
	AvgDegree float64
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{EdgeCount: c.count, NodeCount: len(c.edges)}
	if len(c.edges) > 0 {
		s.AvgDegree = float64(c.count*2) / float64(len(c.edges))
	}
	return s
}

// Rebuild reloads the cache from every edge currently in eng.
func Rebuild(eng *store.Engine) (*Cache, error) {
	c := New()
	var all []*store.Edge
	if err := eng.IterEdges(func(e *store.Edge) error {
		all = append(all, e)
		return nil
	}); err != nil {
		return nil, err
	}
	c.Build(all)
	return c, nil
}
