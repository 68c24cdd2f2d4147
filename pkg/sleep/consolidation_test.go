package sleep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hippograph/core/pkg/store"
)

func TestFindThematicClustersGroupsSimilarEmbeddings(t *testing.T) {
	nodes := []*store.Node{
		{ID: "1", Embedding: []float32{1, 0, 0}},
		{ID: "2", Embedding: []float32{0.99, 0.01, 0}},
		{ID: "3", Embedding: []float32{0.98, 0.02, 0}},
		{ID: "4", Embedding: []float32{0, 0, 1}},
	}
	clusters := findThematicClusters(nodes, 0.9, 3)
	assert.Len(t, clusters, 1)
	assert.ElementsMatch(t, []store.NodeID{"1", "2", "3"}, clusters[0])
}

func TestFindThematicClustersBelowMinSizeDropped(t *testing.T) {
	nodes := []*store.Node{
		{ID: "1", Embedding: []float32{1, 0, 0}},
		{ID: "2", Embedding: []float32{0.99, 0.01, 0}},
	}
	clusters := findThematicClusters(nodes, 0.9, 3)
	assert.Empty(t, clusters)
}

func TestFindTemporalChainsSequentialSameCategory(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	nodes := []*store.Node{
		{ID: "1", Category: "session", CreatedAt: base},
		{ID: "2", Category: "session", CreatedAt: base.Add(24 * time.Hour)},
		{ID: "3", Category: "session", CreatedAt: base.Add(48 * time.Hour)},
	}
	chains := findTemporalChains(nodes, 7*24*time.Hour)
	assert.Len(t, chains, 1)
	assert.Equal(t, []store.NodeID{"1", "2", "3"}, chains[0])
}

func TestFindTemporalChainsGapBreaksChain(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	nodes := []*store.Node{
		{ID: "1", Category: "session", CreatedAt: base},
		{ID: "2", Category: "session", CreatedAt: base.Add(24 * time.Hour)},
		{ID: "3", Category: "session", CreatedAt: base.Add(30 * 24 * time.Hour)},
		{ID: "4", Category: "session", CreatedAt: base.Add(31 * 24 * time.Hour)},
	}
	chains := findTemporalChains(nodes, 7*24*time.Hour)
	assert.Empty(t, chains) // each broken half has only 2 notes, below min chain length 3
}
