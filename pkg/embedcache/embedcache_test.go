package embedcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippograph/core/pkg/store"
)

func TestPutGetDelete(t *testing.T) {
	c := New()
	c.Put("n1", []float32{1, 2, 3})

	v, ok := c.Get("n1")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)

	c.Delete("n1")
	_, ok = c.Get("n1")
	assert.False(t, ok)
}

func TestRebuildSkipsNodesWithoutEmbedding(t *testing.T) {
	dir := t.TempDir()
	eng, err := store.Open(dir)
	require.NoError(t, err)
	defer eng.Close()

	withEmb, err := eng.InsertNode(&store.Node{Content: "has embedding", Embedding: []float32{0.1, 0.2}})
	require.NoError(t, err)
	_, err = eng.InsertNode(&store.Node{Content: "no embedding"})
	require.NoError(t, err)

	c, err := Rebuild(eng)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	v, ok := c.Get(withEmb)
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2}, v)
}
