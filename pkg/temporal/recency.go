package temporal

import (
	"math"
	"time"
)

// CategoryMultiplier maps a category to a decay-exponent scale. Anchor
// categories are handled separately (recency 1.0, multiplier irrelevant);
// this table is for *non-anchor* categories that should still decay more
// slowly than the default, e.g. a "project" category at 0.5 decays at
// half the rate of an untracked category at 1.0.
type CategoryMultiplier map[string]float64

// DefaultCategoryMultipliers returns an empty table — every category
// decays at the plain half-life unless the caller configures otherwise.
func DefaultCategoryMultipliers() CategoryMultiplier {
	return CategoryMultiplier{}
}

func (m CategoryMultiplier) multiplierFor(category string) float64 {
	if v, ok := m[category]; ok && v > 0 {
		return v
	}
	return 1.0
}

// RecencyFactor computes recency_factor(node) per §4.5: 1.0 for anchor
// categories, otherwise 0.5^((age/half_life_days) * category_multiplier).
//
// The composition rule for category_multiplier is deliberately the decay
// *exponent* scale, not a post-hoc multiply on the final factor: scaling
// the exponent means a multiplier of 0.5 exactly doubles the effective
// half-life, which is the legible, single behavior a "slow this category's
// decay down" knob should have.
func RecencyFactor(category string, createdAt, now time.Time, halfLifeDays float64, anchors []string, multipliers CategoryMultiplier) float64 {
	if isAnchor(category, anchors) {
		return 1.0
	}
	if halfLifeDays <= 0 {
		halfLifeDays = 30
	}
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	scale := multipliers.multiplierFor(category)
	exponent := (ageDays / halfLifeDays) * scale
	return math.Pow(0.5, exponent)
}

func isAnchor(category string, anchors []string) bool {
	for _, a := range anchors {
		if a == category {
			return true
		}
	}
	return false
}

// EventRange is a node's (or query's) bi-temporal event window. A zero
// value on either end means "unknown": per the interval-overlap contract,
// an unknown endpoint on either side makes the overlap score 0, never a
// guess.
type EventRange struct {
	Start time.Time
	End   time.Time
}

// IsKnown reports whether both endpoints are set.
func (r EventRange) IsKnown() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Score computes temporal_score(query_range, node) per §4.5: the fraction
// of the query's detected range covered by the node's [t_event_start,
// t_event_end] overlap. Missing either range scores 0, never a guess.
func Score(queryRange, nodeRange EventRange) float64 {
	if !queryRange.IsKnown() || !nodeRange.IsKnown() {
		return 0
	}

	overlapStart := maxTime(queryRange.Start, nodeRange.Start)
	overlapEnd := minTime(queryRange.End, nodeRange.End)
	if !overlapEnd.After(overlapStart) {
		return 0
	}
	overlap := overlapEnd.Sub(overlapStart)

	queryDuration := queryRange.End.Sub(queryRange.Start)
	if queryDuration <= 0 {
		queryDuration = time.Second
	}

	score := float64(overlap) / float64(queryDuration)
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
