package graphcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippograph/core/pkg/store"
)

func TestBuildIsBidirectional(t *testing.T) {
	c := New()
	c.Build([]*store.Edge{{ID: "e1", Source: "a", Target: "b", Weight: 0.6, Type: store.EdgeTypeAssociation}})

	aNeighbors := c.Neighbors("a")
	require.Len(t, aNeighbors, 1)
	assert.Equal(t, store.NodeID("b"), aNeighbors[0].ID)

	bNeighbors := c.Neighbors("b")
	require.Len(t, bNeighbors, 1)
	assert.Equal(t, store.NodeID("a"), bNeighbors[0].ID)
}

func TestRemoveEdge(t *testing.T) {
	c := New()
	edge := &store.Edge{ID: "e1", Source: "a", Target: "b"}
	c.AddEdge(edge)
	c.RemoveEdge(edge)

	assert.Empty(t, c.Neighbors("a"))
	assert.Empty(t, c.Neighbors("b"))
}

func TestUpdateWeight(t *testing.T) {
	c := New()
	c.AddEdge(&store.Edge{ID: "e1", Source: "a", Target: "b", Weight: 0.5})
	c.UpdateWeight("a", "b", "e1", 0.95)

	n := c.Neighbors("a")
	require.Len(t, n, 1)
	assert.Equal(t, 0.95, n[0].Weight)
}

func TestUpsertAddsNewEdge(t *testing.T) {
	c := New()
	c.Upsert(&store.Edge{ID: "e1", Source: "a", Target: "b", Weight: 0.4, Type: store.EdgeTypeEntity})

	n := c.Neighbors("a")
	require.Len(t, n, 1)
	assert.Equal(t, 0.4, n[0].Weight)
	assert.Equal(t, 1, c.Stats().EdgeCount)
}

func TestUpsertUpdatesExistingEdgeInPlace(t *testing.T) {
	c := New()
	c.AddEdge(&store.Edge{ID: "e1", Source: "a", Target: "b", Weight: 0.4, Type: store.EdgeTypeEntity})

	c.Upsert(&store.Edge{ID: "e1", Source: "a", Target: "b", Weight: 0.8, Type: store.EdgeTypeEntity})

	assert.Equal(t, 1, c.Stats().EdgeCount)
	n := c.Neighbors("a")
	require.Len(t, n, 1)
	assert.Equal(t, 0.8, n[0].Weight)

	bNeighbors := c.Neighbors("b")
	require.Len(t, bNeighbors, 1)
	assert.Equal(t, 0.8, bNeighbors[0].Weight)
}

func TestStats(t *testing.T) {
	c := New()
	c.AddEdge(&store.Edge{ID: "e1", Source: "a", Target: "b"})
	c.AddEdge(&store.Edge{ID: "e2", Source: "b", Target: "c"})

	s := c.Stats()
	assert.Equal(t, 2, s.EdgeCount)
	assert.Equal(t, 3, s.NodeCount)
	assert.InDelta(t, 4.0/3.0, s.AvgDegree, 1e-9)
}
