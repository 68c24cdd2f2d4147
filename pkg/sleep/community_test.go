package sleep

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hippograph/core/pkg/store"
)

func TestDetectCommunitiesSmallComponentIsIsolated(t *testing.T) {
	nodes := []store.NodeID{"a", "b", "c"}
	edges := []*store.Edge{
		{Source: "a", Target: "b", Weight: 1},
		{Source: "b", Target: "c", Weight: 1},
	}
	result := detectCommunities(nodes, edges)
	for _, id := range nodes {
		assert.Equal(t, -1, result[id])
	}
}

func TestDetectCommunitiesTwoClearClusters(t *testing.T) {
	// Two dense 3-node triangles bridged by one weak edge: the largest
	// (only) component has 6 nodes, so it is eligible for splitting, and
	// the bridge is too weak relative to in-cluster weight to survive a
	// single merge step.
	nodes := []store.NodeID{"a1", "a2", "a3", "b1", "b2", "b3"}
	edges := []*store.Edge{
		{Source: "a1", Target: "a2", Weight: 1},
		{Source: "a2", Target: "a3", Weight: 1},
		{Source: "a1", Target: "a3", Weight: 1},
		{Source: "b1", Target: "b2", Weight: 1},
		{Source: "b2", Target: "b3", Weight: 1},
		{Source: "b1", Target: "b3", Weight: 1},
		{Source: "a1", Target: "b1", Weight: 0.01},
	}
	result := detectCommunities(nodes, edges)
	assert.Equal(t, result["a1"], result["a2"])
	assert.Equal(t, result["a1"], result["a3"])
	assert.Equal(t, result["b1"], result["b2"])
	assert.Equal(t, result["b1"], result["b3"])
	assert.NotEqual(t, result["a1"], result["b1"])
}

func TestDetectCommunitiesOnlyLargestComponentSplit(t *testing.T) {
	nodes := []store.NodeID{"a1", "a2", "a3", "a4", "a5", "x", "y"}
	edges := []*store.Edge{
		{Source: "a1", Target: "a2", Weight: 1},
		{Source: "a2", Target: "a3", Weight: 1},
		{Source: "a3", Target: "a4", Weight: 1},
		{Source: "a4", Target: "a5", Weight: 1},
		{Source: "a5", Target: "a1", Weight: 1},
		{Source: "x", Target: "y", Weight: 1},
	}
	result := detectCommunities(nodes, edges)
	assert.Equal(t, -1, result["x"])
	assert.Equal(t, -1, result["y"])
}
