package ann

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	return Config{M: 4, EfConstruction: 20, EfSearch: 20, LevelMultiplier: 1.0}
}

func TestAddAndSearchFindsExactMatch(t *testing.T) {
	ix := New(3, smallConfig())
	require.NoError(t, ix.Add("a", []float32{1, 0, 0}))
	require.NoError(t, ix.Add("b", []float32{0, 1, 0}))
	require.NoError(t, ix.Add("c", []float32{0, 0, 1}))

	results, err := ix.Search(context.Background(), []float32{1, 0, 0}, 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestSearchRespectsMinSimilarity(t *testing.T) {
	ix := New(2, smallConfig())
	require.NoError(t, ix.Add("a", []float32{1, 0}))
	require.NoError(t, ix.Add("b", []float32{0, 1}))

	results, err := ix.Search(context.Background(), []float32{1, 0}, 10, 0.9)
	require.NoError(t, err)
	for _, r := range results {
		assert.GreaterOrEqual(t, float64(r.Score), 0.9)
	}
}

func TestRemoveExcludesFromResults(t *testing.T) {
	ix := New(2, smallConfig())
	require.NoError(t, ix.Add("a", []float32{1, 0}))
	require.NoError(t, ix.Add("b", []float32{0.9, 0.1}))

	ix.Remove("a")
	results, err := ix.Search(context.Background(), []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
	assert.Equal(t, 1, ix.Len())
}

func TestAddReplacesExistingID(t *testing.T) {
	ix := New(2, smallConfig())
	require.NoError(t, ix.Add("a", []float32{1, 0}))
	require.NoError(t, ix.Add("a", []float32{0, 1}))
	assert.Equal(t, 1, ix.Len())

	results, err := ix.Search(context.Background(), []float32{0, 1}, 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestDimensionMismatch(t *testing.T) {
	ix := New(3, smallConfig())
	assert.ErrorIs(t, ix.Add("a", []float32{1, 0}), ErrDimensionMismatch)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	ix := New(2, smallConfig())
	require.NoError(t, ix.Add("a", []float32{1, 0}))
	require.NoError(t, ix.Add("b", []float32{0, 1}))
	ix.Remove("b")

	data, err := ix.Marshal()
	require.NoError(t, err)

	restored, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Len())

	results, err := restored.Search(context.Background(), []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}
