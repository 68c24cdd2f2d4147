package searchlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippograph/core/pkg/retriever"
	"github.com/hippograph/core/pkg/store"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	eng, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return New(eng, 0)
}

func TestHashQueryIsStableAndCaseInsensitive(t *testing.T) {
	a := HashQuery("  What did I say about Go? ")
	b := HashQuery("what did i say about go?")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, HashQuery("something else"))
}

func TestHashQueryIsNonNegative(t *testing.T) {
	for _, q := range []string{"", "x", "a longer query with several words in it"} {
		assert.GreaterOrEqual(t, HashQuery(q), int64(0))
	}
}

func TestRecordAppendsSearchLog(t *testing.T) {
	l := newTestLogger(t)
	q := retriever.Query{Text: "hello world", MaxResults: 5}
	results := []retriever.Result{{NodeID: "n1", Score: 0.8}}
	diag := retriever.Diagnostics{TotalMs: 12.5, EmbedMs: 3, ANNMs: 2}

	id, err := l.Record(q, results, diag)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	recent, err := l.Store.RecentSearchLogs(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "hello world", recent[0].QueryCleaned)
	assert.Equal(t, 1, recent[0].ResultsCount)
	assert.Equal(t, store.NodeID("n1"), recent[0].Top1NodeID)
}

func TestAggregateComputesPercentilesOverWindow(t *testing.T) {
	l := newTestLogger(t)
	latencies := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	for _, lat := range latencies {
		q := retriever.Query{Text: "q"}
		results := []retriever.Result{{NodeID: "n", Score: 1}}
		diag := retriever.Diagnostics{TotalMs: lat}
		_, err := l.Record(q, results, diag)
		require.NoError(t, err)
	}

	stats, err := l.Aggregate(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalSearches)
	assert.Equal(t, 0, stats.ZeroResults)
	assert.InDelta(t, 60, stats.LatencyP50Ms, 1e-9)
	assert.InDelta(t, 100, stats.LatencyP95Ms, 1e-9)
	assert.InDelta(t, 100, stats.LatencyMaxMs, 1e-9)
}

func TestAggregateCountsZeroResultSearches(t *testing.T) {
	l := newTestLogger(t)
	q := retriever.Query{Text: "no matches here"}
	diag := retriever.Diagnostics{TotalMs: 5}

	_, err := l.Record(q, nil, diag)
	require.NoError(t, err)

	stats, err := l.Aggregate(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSearches)
	assert.Equal(t, 1, stats.ZeroResults)
	require.Len(t, stats.RecentZero, 1)
	assert.Equal(t, "no matches here", stats.RecentZero[0])
}

func TestAggregateExcludesRecordsOutsideWindow(t *testing.T) {
	l := newTestLogger(t)
	old := &store.SearchLogRecord{
		QueryCleaned:   "stale",
		Timestamp:      time.Now().UTC().Add(-48 * time.Hour),
		LatencyTotalMs: 10,
		ResultsCount:   1,
	}
	_, err := l.Store.AppendSearchLog(old)
	require.NoError(t, err)

	q := retriever.Query{Text: "fresh"}
	_, err = l.Record(q, []retriever.Result{{NodeID: "n"}}, retriever.Diagnostics{TotalMs: 20})
	require.NoError(t, err)

	stats, err := l.Aggregate(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSearches)
}

func TestAggregateEmptyWindowReturnsZeroValue(t *testing.T) {
	l := newTestLogger(t)
	stats, err := l.Aggregate(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSearches)
}
