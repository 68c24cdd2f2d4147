package hippograph

import (
	"context"
	"fmt"
	"time"

	"github.com/hippograph/core/pkg/searchlog"
	"github.com/hippograph/core/pkg/sleep"
)

// SleepMode selects which maintenance cycle RunSleep runs.
type SleepMode string

const (
	SleepModeLight SleepMode = "light"
	SleepModeDeep  SleepMode = "deep"
)

// RunSleepRequest is the Maintenance API's run_sleep() request.
type RunSleepRequest struct {
	Mode   SleepMode
	DryRun bool
}

// RunSleep runs a maintenance cycle on demand, outside the scheduler's
// own timers. The scheduler and an on-demand call share the runner, so
// both are serialized by the scheduler's exclusivity guard.
func (db *DB) RunSleep(ctx context.Context, req RunSleepRequest) (sleep.Result, error) {
	db.mu.RLock()
	scheduler := db.scheduler
	db.mu.RUnlock()
	if err := db.ensureOpen(); err != nil {
		return sleep.Result{}, err
	}

	switch req.Mode {
	case SleepModeDeep:
		return scheduler.RunNow(ctx, true, req.DryRun)
	case SleepModeLight, "":
		return scheduler.RunNow(ctx, false, req.DryRun)
	default:
		return sleep.Result{}, fmt.Errorf("hippograph: unknown sleep mode %q", req.Mode)
	}
}

// SearchStats is the Maintenance API's search_stats() response.
func (db *DB) SearchStats(window time.Duration) (searchlog.Stats, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if err := db.ensureOpen(); err != nil {
		return searchlog.Stats{}, err
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return db.searchLog.Aggregate(window)
}
