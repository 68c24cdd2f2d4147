package retriever

import (
	"sort"

	"github.com/hippograph/core/pkg/store"
)

// rrfFuse is the alternate fusion strategy selectable via
// config.BlendConfig.Strategy == "rrf": instead of a weighted sum of raw
// scores, each signal contributes by rank position, which sidesteps
// scale mismatches between cosine similarity, BM25, and activation.
// Only positive scores contribute a rank; signals with no entries for id
// contribute 0.
func rrfFuse(k int, signals ...map[store.NodeID]float64) map[store.NodeID]float64 {
	if k <= 0 {
		k = 60
	}
	fused := make(map[store.NodeID]float64)
	for _, scores := range signals {
		if len(scores) == 0 {
			continue
		}
		ranked := make([]store.NodeID, 0, len(scores))
		for id, s := range scores {
			if s > 0 {
				ranked = append(ranked, id)
			}
		}
		sort.Slice(ranked, func(i, j int) bool { return scores[ranked[i]] > scores[ranked[j]] })
		for rank, id := range ranked {
			fused[id] += 1.0 / float64(k+rank+1)
		}
	}
	return fused
}
