package hippograph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippograph/core/pkg/store"
)

func TestRunSleepLightBoostsAnchorImportance(t *testing.T) {
	cfg := testConfig()
	cfg.Temporal.AnchorCategories = []string{"identity"}
	db, err := Open(t.TempDir(), cfg, Dependencies{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	res, err := db.Add(context.Background(), AddRequest{Content: "who I am", Category: "identity"})
	require.NoError(t, err)

	_, err = db.RunSleep(context.Background(), RunSleepRequest{Mode: SleepModeLight})
	require.NoError(t, err)

	node, err := db.GetNode(res.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ImportanceCritical, node.Importance)
}

func TestRunSleepRejectsUnknownMode(t *testing.T) {
	db := openTestDB(t, Dependencies{})
	_, err := db.RunSleep(context.Background(), RunSleepRequest{Mode: "bogus"})
	assert.Error(t, err)
}

func TestSearchStatsDefaultsWindowWhenZero(t *testing.T) {
	db := openTestDB(t, Dependencies{})
	stats, err := db.SearchStats(0)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSearches)
}
