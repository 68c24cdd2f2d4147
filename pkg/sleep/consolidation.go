package sleep

import (
	"sort"
	"time"

	"github.com/hippograph/core/pkg/store"
	"github.com/hippograph/core/pkg/vectormath"
)

// findThematicClusters groups notes by embedding similarity, ported from
// memory_consolidation.py's find_thematic_clusters: a greedy single-pass
// grouping, not a proper clustering algorithm — the first unclustered note
// seeds a cluster and every later note within minSimilarity of the seed
// joins it, never re-checked against other members.
func findThematicClusters(nodes []*store.Node, minSimilarity float64, minClusterSize int) [][]store.NodeID {
	var clusters [][]store.NodeID
	processed := make(map[store.NodeID]bool)

	for i, seed := range nodes {
		if seed.Embedding == nil || processed[seed.ID] {
			continue
		}
		cluster := []store.NodeID{seed.ID}
		for _, other := range nodes[i+1:] {
			if other.Embedding == nil || processed[other.ID] {
				continue
			}
			if vectormath.Cosine(seed.Embedding, other.Embedding) >= minSimilarity {
				cluster = append(cluster, other.ID)
				processed[other.ID] = true
			}
		}
		if len(cluster) >= minClusterSize {
			clusters = append(clusters, cluster)
			processed[seed.ID] = true
		}
	}
	return clusters
}

// findTemporalChains groups same-category notes into sequential chains
// where consecutive notes are no more than maxGap apart, ported from
// memory_consolidation.py's find_temporal_chains.
func findTemporalChains(nodes []*store.Node, maxGap time.Duration) [][]store.NodeID {
	sorted := make([]*store.Node, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	byCategory := make(map[string][]*store.Node)
	for _, n := range sorted {
		byCategory[n.Category] = append(byCategory[n.Category], n)
	}

	var chains [][]store.NodeID
	for _, group := range byCategory {
		if len(group) < 2 {
			continue
		}
		var chain []store.NodeID
		for i, n := range group {
			if i == 0 {
				chain = append(chain, n.ID)
				continue
			}
			gap := n.CreatedAt.Sub(group[i-1].CreatedAt)
			if gap <= maxGap {
				chain = append(chain, n.ID)
				continue
			}
			if len(chain) >= 3 {
				chains = append(chains, chain)
			}
			chain = []store.NodeID{n.ID}
		}
		if len(chain) >= 3 {
			chains = append(chains, chain)
		}
	}
	return chains
}
