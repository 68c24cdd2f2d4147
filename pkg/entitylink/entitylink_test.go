package entitylink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippograph/core/pkg/store"
)

func newTestEngine(t *testing.T) *store.Engine {
	t.Helper()
	eng, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func addNode(t *testing.T, eng *store.Engine, content string) store.NodeID {
	t.Helper()
	n := &store.Node{Content: content}
	id, err := eng.InsertNode(n)
	require.NoError(t, err)
	return id
}

func TestCanonicalizeCollapsesWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, "go lang", Canonicalize("  Go   Lang"))
}

func TestLinkCreatesEntityAndLink(t *testing.T) {
	eng := newTestEngine(t)
	nodeID := addNode(t, eng, "learning golang")

	ids, err := Link(eng, nodeID, []Mention{{Surface: "Golang", EntityType: "tech", Confidence: 0.9}})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	linked, err := eng.EntitiesForNode(nodeID)
	require.NoError(t, err)
	assert.Contains(t, linked, ids[0])
}

func TestLinkSkipsLowConfidenceMentions(t *testing.T) {
	eng := newTestEngine(t)
	nodeID := addNode(t, eng, "noise")

	ids, err := Link(eng, nodeID, []Mention{{Surface: "noise", EntityType: "misc", Confidence: 0.1}})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLinkCreatesSharedEntityEdgeBetweenNodes(t *testing.T) {
	eng := newTestEngine(t)
	n1 := addNode(t, eng, "using docker for deployment")
	n2 := addNode(t, eng, "docker compose setup")

	_, err := Link(eng, n1, []Mention{{Surface: "docker", EntityType: "tech", Confidence: 0.9}})
	require.NoError(t, err)
	_, err = Link(eng, n2, []Mention{{Surface: "Docker", EntityType: "tech", Confidence: 0.9}})
	require.NoError(t, err)

	edgeIDs, err := eng.NeighborEdgeIDs(n1)
	require.NoError(t, err)
	require.NotEmpty(t, edgeIDs)

	edge, err := eng.GetEdge(edgeIDs[0])
	require.NoError(t, err)
	assert.Equal(t, store.EdgeTypeEntity, edge.Type)
	assert.InDelta(t, 0.6, edge.Weight, 1e-9)
}

func TestSharedEdgeWeightCapsAtOne(t *testing.T) {
	assert.Equal(t, 1.0, sharedEdgeWeight(10))
	assert.InDelta(t, 0.6, sharedEdgeWeight(1), 1e-9)
	assert.InDelta(t, 0.5, sharedEdgeWeight(0), 1e-9)
}

func TestLinkMergesByTakingMaxWeight(t *testing.T) {
	eng := newTestEngine(t)
	n1 := addNode(t, eng, "python and docker")
	n2 := addNode(t, eng, "python and docker together")

	_, err := Link(eng, n1, []Mention{
		{Surface: "python", EntityType: "tech", Confidence: 0.9},
		{Surface: "docker", EntityType: "tech", Confidence: 0.9},
	})
	require.NoError(t, err)
	_, err = Link(eng, n2, []Mention{
		{Surface: "python", EntityType: "tech", Confidence: 0.9},
		{Surface: "docker", EntityType: "tech", Confidence: 0.9},
	})
	require.NoError(t, err)

	edgeIDs, err := eng.NeighborEdgeIDs(n1)
	require.NoError(t, err)

	var entityEdges int
	for _, id := range edgeIDs {
		edge, err := eng.GetEdge(id)
		require.NoError(t, err)
		if edge.Type == store.EdgeTypeEntity {
			entityEdges++
			assert.InDelta(t, 0.7, edge.Weight, 1e-9)
		}
	}
	assert.Equal(t, 1, entityEdges, "shared entities should merge into a single edge, not one per entity")
}
