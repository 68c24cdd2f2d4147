package sleep

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hippograph/core/pkg/store"
)

func TestPageRankNoEdgesIsUniform(t *testing.T) {
	nodes := []store.NodeID{"a", "b", "c"}
	scores := pageRank(nodes, nil, 0.85, 100, 1e-6)
	assert.Len(t, scores, 3)
	for _, id := range nodes {
		assert.InDelta(t, 1.0/3.0, scores[id], 1e-9)
	}
}

func TestPageRankHubScoresHighest(t *testing.T) {
	nodes := []store.NodeID{"hub", "a", "b", "c"}
	edges := []*store.Edge{
		{Source: "a", Target: "hub", Weight: 1},
		{Source: "b", Target: "hub", Weight: 1},
		{Source: "c", Target: "hub", Weight: 1},
	}
	scores := pageRank(nodes, edges, 0.85, 100, 1e-6)
	assert.Equal(t, 1.0, scores["hub"])
	assert.Less(t, scores["a"], scores["hub"])
}

func TestPageRankNormalizedToMaxOne(t *testing.T) {
	nodes := []store.NodeID{"a", "b"}
	edges := []*store.Edge{{Source: "a", Target: "b", Weight: 1}}
	scores := pageRank(nodes, edges, 0.85, 100, 1e-6)
	max := 0.0
	for _, v := range scores {
		if v > max {
			max = v
		}
	}
	assert.Equal(t, 1.0, max)
}
