package sleep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippograph/core/pkg/store"
)

func TestSchedulerTriggersLightSleepAtThreshold(t *testing.T) {
	runner, eng := newTestRunner(t)
	runner.Config.Temporal.AnchorCategories = []string{"identity"}
	id, err := eng.InsertNode(&store.Node{Content: "x", Category: "identity", Importance: store.ImportanceNormal})
	require.NoError(t, err)

	sched := NewScheduler(runner, 3, 0)
	ctx := context.Background()
	sched.NotifyNoteAdded(ctx)
	sched.NotifyNoteAdded(ctx)
	sched.NotifyNoteAdded(ctx) // crosses threshold, fires async

	require.Eventually(t, func() bool {
		n, err := eng.GetNode(id)
		return err == nil && n.Importance == store.ImportanceCritical
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerDisabledThresholdNeverTriggers(t *testing.T) {
	runner, _ := newTestRunner(t)
	sched := NewScheduler(runner, 0, 0)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		sched.NotifyNoteAdded(ctx)
	}
	assert.Equal(t, 0, sched.notesSinceLight)
}

func TestSchedulerStopEndsDeepSleepLoop(t *testing.T) {
	runner, _ := newTestRunner(t)
	sched := NewScheduler(runner, 0, 20*time.Millisecond)
	sched.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	sched.Stop() // must return promptly, not hang
}
