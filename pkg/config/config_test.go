package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBlendWeightsSumToOne(t *testing.T) {
	d := Default()
	sum := d.Blend.Alpha + d.Blend.Beta + d.Blend.Gamma + d.Blend.Delta
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestFromEnvOverridesDefault(t *testing.T) {
	t.Setenv("HIPPOGRAPH_BLEND_ALPHA", "0.9")
	t.Setenv("HIPPOGRAPH_SLEEP_DEEP_INTERVAL", "6h")
	t.Setenv("HIPPOGRAPH_TEMPORAL_ANCHOR_CATEGORIES", "identity, preference, goal")

	c := FromEnv()
	assert.Equal(t, 0.9, c.Blend.Alpha)
	assert.Equal(t, 6*time.Hour, c.Sleep.DeepInterval)
	assert.Equal(t, []string{"identity", "preference", "goal"}, c.Temporal.AnchorCategories)

	// untouched keys still fall back to defaults
	assert.Equal(t, Default().BM25.K1, c.BM25.K1)
}

func TestFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("HIPPOGRAPH_BLEND_ALPHA", "not-a-number")
	c := FromEnv()
	assert.Equal(t, Default().Blend.Alpha, c.Blend.Alpha)
}

func TestIsAllowedKey(t *testing.T) {
	require.True(t, IsAllowedKey("HIPPOGRAPH_BM25_K1"))
	assert.False(t, IsAllowedKey("HIPPOGRAPH_NOT_A_REAL_KEY"))
}

func TestAllowedKeysHaveNoDuplicates(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range AllowedKeys() {
		require.False(t, seen[m.Key], "duplicate key %s", m.Key)
		seen[m.Key] = true
	}
}
