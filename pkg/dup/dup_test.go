package dup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippograph/core/pkg/ann"
)

func TestCheckBlocksNearIdenticalVector(t *testing.T) {
	ix := ann.New(3, ann.DefaultConfig())
	require.NoError(t, ix.Add("existing", []float32{1, 0, 0}))

	v, err := Check(context.Background(), ix, []float32{1, 0, 0}, DefaultConfig())
	require.NoError(t, err)
	assert.True(t, v.Blocked)
	assert.Equal(t, "existing", v.ExistingID)
}

func TestCheckWarnsOnModerateSimilarity(t *testing.T) {
	ix := ann.New(2, ann.DefaultConfig())
	require.NoError(t, ix.Add("existing", []float32{1, 0}))

	// cos(~23 degrees) ~ 0.92, between warn and block.
	v, err := Check(context.Background(), ix, []float32{0.92, 0.392}, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, v.Blocked)
	assert.True(t, v.Warned)
}

func TestCheckPassesOnDissimilarVector(t *testing.T) {
	ix := ann.New(2, ann.DefaultConfig())
	require.NoError(t, ix.Add("existing", []float32{1, 0}))

	v, err := Check(context.Background(), ix, []float32{0, 1}, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, v.Blocked)
	assert.False(t, v.Warned)
}

func TestCheckEmptyIndexNeverBlocks(t *testing.T) {
	ix := ann.New(3, ann.DefaultConfig())
	v, err := Check(context.Background(), ix, []float32{1, 0, 0}, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, v.Blocked)
	assert.False(t, v.Warned)
}
