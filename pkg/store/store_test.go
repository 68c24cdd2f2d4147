package store

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestInsertAndGetNode(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.InsertNode(&Node{Content: "remember to water the plants", Category: "task"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := e.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, "remember to water the plants", got.Content)
	assert.Equal(t, "task", got.Category)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestInsertNodeDuplicateID(t *testing.T) {
	e := newTestEngine(t)
	node := &Node{ID: "fixed-id", Content: "a"}
	_, err := e.InsertNode(node)
	require.NoError(t, err)

	_, err = e.InsertNode(&Node{ID: "fixed-id", Content: "b"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGetNodeNotFound(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.GetNode("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateNodePreservesCreatedAt(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.InsertNode(&Node{Content: "original"})
	require.NoError(t, err)
	original, err := e.GetNode(id)
	require.NoError(t, err)

	err = e.UpdateNode(&Node{ID: id, Content: "revised"})
	require.NoError(t, err)

	updated, err := e.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, "revised", updated.Content)
	assert.Equal(t, original.CreatedAt.Unix(), updated.CreatedAt.Unix())
}

func TestDeleteNodeRemovesEdges(t *testing.T) {
	e := newTestEngine(t)
	a, err := e.InsertNode(&Node{Content: "a"})
	require.NoError(t, err)
	b, err := e.InsertNode(&Node{Content: "b"})
	require.NoError(t, err)

	edgeID, err := e.AddEdge(&Edge{Source: a, Target: b, Weight: 0.5, Type: EdgeTypeAssociation})
	require.NoError(t, err)

	require.NoError(t, e.DeleteNode(a))

	_, err = e.GetNode(a)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.GetEdge(edgeID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddEdgeRequiresExistingNodes(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.AddEdge(&Edge{Source: "nope", Target: "also-nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNeighborEdgeIDsBothDirections(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.InsertNode(&Node{Content: "a"})
	b, _ := e.InsertNode(&Node{Content: "b"})
	c, _ := e.InsertNode(&Node{Content: "c"})

	e1, err := e.AddEdge(&Edge{Source: a, Target: b})
	require.NoError(t, err)
	e2, err := e.AddEdge(&Edge{Source: c, Target: a})
	require.NoError(t, err)

	ids, err := e.NeighborEdgeIDs(a)
	require.NoError(t, err)
	assert.ElementsMatch(t, []EdgeID{e1, e2}, ids)
}

func TestAddEdgeReweightsExistingCompositeKey(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.InsertNode(&Node{Content: "a"})
	b, _ := e.InsertNode(&Node{Content: "b"})

	first, err := e.AddEdge(&Edge{Source: a, Target: b, Weight: 0.5, Type: EdgeTypeAssociation})
	require.NoError(t, err)

	second, err := e.AddEdge(&Edge{Source: a, Target: b, Weight: 0.9, Type: EdgeTypeAssociation})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	edge, err := e.GetEdge(first)
	require.NoError(t, err)
	assert.Equal(t, 0.9, edge.Weight)

	ids, err := e.NeighborEdgeIDs(a)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestAddEdgeReweightsRegardlessOfDirectionForUndirectedType(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.InsertNode(&Node{Content: "a"})
	b, _ := e.InsertNode(&Node{Content: "b"})

	first, err := e.AddEdge(&Edge{Source: a, Target: b, Weight: 0.5, Type: EdgeTypeEntity})
	require.NoError(t, err)

	second, err := e.AddEdge(&Edge{Source: b, Target: a, Weight: 0.7, Type: EdgeTypeEntity})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	edge, err := e.GetEdge(first)
	require.NoError(t, err)
	assert.Equal(t, 0.7, edge.Weight)
}

func TestAddEdgeKeepsDirectionDistinctForTemporalChain(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.InsertNode(&Node{Content: "a"})
	b, _ := e.InsertNode(&Node{Content: "b"})

	forward, err := e.AddEdge(&Edge{Source: a, Target: b, Weight: 0.9, Type: EdgeTypeTemporalChain})
	require.NoError(t, err)

	backward, err := e.AddEdge(&Edge{Source: b, Target: a, Weight: 0.9, Type: EdgeTypeTemporalChain})
	require.NoError(t, err)
	assert.NotEqual(t, forward, backward)
}

func TestAddEdgeTreatsDifferentTypesAsDistinct(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.InsertNode(&Node{Content: "a"})
	b, _ := e.InsertNode(&Node{Content: "b"})

	assoc, err := e.AddEdge(&Edge{Source: a, Target: b, Weight: 0.5, Type: EdgeTypeAssociation})
	require.NoError(t, err)
	entity, err := e.AddEdge(&Edge{Source: a, Target: b, Weight: 0.5, Type: EdgeTypeEntity})
	require.NoError(t, err)
	assert.NotEqual(t, assoc, entity)
}

func TestUpsertEntityDedupes(t *testing.T) {
	e := newTestEngine(t)
	id1, err := e.UpsertEntity("Alice", "person")
	require.NoError(t, err)
	id2, err := e.UpsertEntity("Alice", "person")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	id3, err := e.UpsertEntity("Alice", "project")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestEntityLinkRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	nodeID, _ := e.InsertNode(&Node{Content: "met Alice for coffee"})
	entityID, err := e.UpsertEntity("Alice", "person")
	require.NoError(t, err)

	require.NoError(t, e.LinkNodeEntity(nodeID, entityID))

	entities, err := e.EntitiesForNode(nodeID)
	require.NoError(t, err)
	assert.Equal(t, []EntityID{entityID}, entities)

	nodes, err := e.NodesForEntity(entityID)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{nodeID}, nodes)
}

func TestSaveNodeVersionPrunesOldest(t *testing.T) {
	e := newTestEngine(t)
	id, _ := e.InsertNode(&Node{Content: "v0"})

	for i := 1; i <= 7; i++ {
		node, err := e.GetNode(id)
		require.NoError(t, err)
		_, err = e.SaveNodeVersion(node)
		require.NoError(t, err)
		node.Content = "v" + string(rune('0'+i))
		require.NoError(t, e.UpdateNode(node))
	}

	history, err := e.NodeHistory(id)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(history), maxVersionsPerNode)
}

func TestRestoreNodeVersion(t *testing.T) {
	e := newTestEngine(t)
	id, _ := e.InsertNode(&Node{Content: "original", Category: "note"})

	node, err := e.GetNode(id)
	require.NoError(t, err)
	_, err = e.SaveNodeVersion(node)
	require.NoError(t, err)

	node.Content = "edited"
	require.NoError(t, e.UpdateNode(node))

	require.NoError(t, e.RestoreNodeVersion(id, 1))

	restored, err := e.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, "original", restored.Content)
}

func TestAppendAndRecentSearchLogs(t *testing.T) {
	e := newTestEngine(t)
	for i := 0; i < 3; i++ {
		_, err := e.AppendSearchLog(&SearchLogRecord{
			QueryCleaned: "query",
			Timestamp:    time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	records, err := e.RecentSearchLogs(2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Greater(t, records[0].ID, records[1].ID)
}

func TestMintReceiptIncrementsAndHashes(t *testing.T) {
	e := newTestEngine(t)
	r1, err := e.MintReceipt()
	require.NoError(t, err)
	r2, err := e.MintReceipt()
	require.NoError(t, err)

	assert.NotEqual(t, r1.TxID, r2.TxID)
	assert.NotEmpty(t, r1.Hash)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.InsertNode(&Node{Content: "keep me"})
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	_, err = e.Snapshot(buf, 0)
	require.NoError(t, err)

	e2 := newTestEngine(t)
	require.NoError(t, e2.Restore(buf))

	var found []string
	require.NoError(t, e2.IterNodes(func(n *Node) error {
		found = append(found, n.Content)
		return nil
	}))
	assert.Contains(t, found, "keep me")
}
