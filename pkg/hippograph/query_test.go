package hippograph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippograph/core/pkg/retriever"
)

func TestSearchReturnsSemanticMatchAndLogsIt(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}
	db := openTestDB(t, Dependencies{Embedder: embedder})

	res, err := db.Add(context.Background(), AddRequest{Content: "anchor note"})
	require.NoError(t, err)

	results, err := db.Search(context.Background(), retriever.Query{Text: "anchor note"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, res.ID, results[0].NodeID)

	stats, err := db.SearchStats(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSearches)
}

func TestSearchBumpsAccessCount(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}
	db := openTestDB(t, Dependencies{Embedder: embedder})

	res, err := db.Add(context.Background(), AddRequest{Content: "anchor note"})
	require.NoError(t, err)

	_, err = db.Search(context.Background(), retriever.Query{Text: "anchor note"})
	require.NoError(t, err)

	node, err := db.GetNode(res.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, node.AccessCount)
}

func TestSearchFailsAfterClose(t *testing.T) {
	db, err := Open(t.TempDir(), testConfig(), Dependencies{})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.Search(context.Background(), retriever.Query{Text: "anything"})
	assert.ErrorIs(t, err, ErrClosed)
}
