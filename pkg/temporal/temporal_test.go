package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecomposeNoSignalReturnsOriginal(t *testing.T) {
	d := Decompose("what is the capital of France")
	assert.False(t, d.HasSignal)
	assert.Equal(t, "what is the capital of France", d.Stripped)
}

func TestDecomposeStripsSignalWords(t *testing.T) {
	d := Decompose("when did I start learning Go")
	assert.True(t, d.HasSignal)
	assert.Equal(t, DirectionWhen, d.Direction)
	assert.NotContains(t, d.Stripped, "when did")
}

func TestDecomposeDetectsBeforeDirection(t *testing.T) {
	d := Decompose("what happened before the incident")
	assert.True(t, d.HasSignal)
	assert.Equal(t, DirectionBefore, d.Direction)
}

func TestDecomposeFallsBackWhenStripTooShort(t *testing.T) {
	d := Decompose("when did it")
	assert.True(t, d.HasSignal)
	assert.Equal(t, "when did it", d.Stripped)
}

func TestRecencyFactorAnchorIsAlwaysOne(t *testing.T) {
	now := time.Now()
	createdAt := now.AddDate(-5, 0, 0)
	f := RecencyFactor("identity", createdAt, now, 30, []string{"identity", "preference"}, DefaultCategoryMultipliers())
	assert.Equal(t, 1.0, f)
}

func TestRecencyFactorDecaysByHalfLife(t *testing.T) {
	now := time.Now()
	createdAt := now.AddDate(0, 0, -30)
	f := RecencyFactor("note", createdAt, now, 30, nil, DefaultCategoryMultipliers())
	assert.InDelta(t, 0.5, f, 0.01)
}

func TestRecencyFactorFreshNodeIsNearOne(t *testing.T) {
	now := time.Now()
	f := RecencyFactor("note", now, now, 30, nil, DefaultCategoryMultipliers())
	assert.InDelta(t, 1.0, f, 1e-9)
}

func TestRecencyFactorCategoryMultiplierDoublesHalfLife(t *testing.T) {
	now := time.Now()
	createdAt := now.AddDate(0, 0, -30)
	multipliers := CategoryMultiplier{"project": 0.5}
	f := RecencyFactor("project", createdAt, now, 30, nil, multipliers)
	// half the exponent scale means the 30-day-old node has only decayed
	// to where a 15-day-old node would be at scale 1.0.
	assert.InDelta(t, 0.707, f, 0.01)
}

func TestScoreReturnsZeroWhenEitherRangeUnknown(t *testing.T) {
	known := EventRange{Start: time.Now(), End: time.Now().Add(time.Hour)}
	assert.Equal(t, 0.0, Score(EventRange{}, known))
	assert.Equal(t, 0.0, Score(known, EventRange{}))
}

func TestScoreFullOverlapIsOne(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	q := EventRange{Start: start, End: end}
	assert.Equal(t, 1.0, Score(q, q))
}

func TestScoreNoOverlapIsZero(t *testing.T) {
	q := EventRange{Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	n := EventRange{Start: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, 0.0, Score(q, n))
}

func TestScorePartialOverlap(t *testing.T) {
	q := EventRange{Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)}
	n := EventRange{Start: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)}
	score := Score(q, n)
	assert.InDelta(t, 0.5, score, 0.01)
}

func TestDefaultDateResolverISODate(t *testing.T) {
	reference := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	r := DefaultDateResolver{}
	got := r.Resolve("we shipped it on 2026-07-15", reference)
	assert.Equal(t, 2026, got.Start.Year())
	assert.Equal(t, time.July, got.Start.Month())
	assert.Equal(t, 15, got.Start.Day())
}

func TestDefaultDateResolverDaysAgo(t *testing.T) {
	reference := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	r := DefaultDateResolver{}
	got := r.Resolve("I fixed that bug 3 days ago", reference)
	assert.True(t, got.IsKnown())
	assert.Equal(t, 31, got.Start.Day())
}

func TestDefaultDateResolverYesterday(t *testing.T) {
	reference := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	r := DefaultDateResolver{}
	got := r.Resolve("talked about this yesterday", reference)
	assert.Equal(t, 2, got.Start.Day())
}

func TestDefaultDateResolverNoSignalReturnsUnknown(t *testing.T) {
	r := DefaultDateResolver{}
	got := r.Resolve("just a reflection with no dates", time.Now())
	assert.False(t, got.IsKnown())
}

func TestNoopDateResolverAlwaysUnknown(t *testing.T) {
	got := NoopDateResolver{}.Resolve("on 2026-01-01", time.Now())
	assert.False(t, got.IsKnown())
}
