package retriever

import (
	"github.com/hippograph/core/pkg/ann"
	"github.com/hippograph/core/pkg/store"
)

// spread runs graph spreading activation from annHits per §4.6.2: each
// iteration distributes activation[u] * edge.weight * decay to every
// neighbor of u, accumulating into a per-node cap of 1.0, until either
// the configured iteration count or a max-delta-below-epsilon
// termination, whichever comes first. Final activations are normalized
// to [0,1] by dividing by the maximum.
func (r *Retriever) spread(annHits []ann.Result) map[store.NodeID]float64 {
	activation := make(map[store.NodeID]float64, len(annHits))
	for _, h := range annHits {
		activation[store.NodeID(h.ID)] = float64(h.Score)
	}
	if len(activation) == 0 || r.GraphCache == nil {
		return activation
	}

	iterations := r.Config.Spread.Iterations
	if iterations <= 0 {
		iterations = 3
	}
	decay := r.Config.Spread.Decay
	epsilon := r.Config.Spread.Epsilon

	hubFactor := r.hubFactorCache()

	for iter := 0; iter < iterations; iter++ {
		delta := make(map[store.NodeID]float64)
		for u, a := range activation {
			if a == 0 {
				continue
			}
			sourcePenalty := hubFactor(u)
			for _, n := range r.GraphCache.Neighbors(u) {
				if n.ID == u {
					continue // self-loops ignored
				}
				targetPenalty := hubFactor(n.ID)
				delta[n.ID] += a * n.Weight * decay * sourcePenalty * targetPenalty
			}
		}
		if len(delta) == 0 {
			break
		}

		maxDelta := 0.0
		for id, d := range delta {
			activation[id] += d
			if activation[id] > 1.0 {
				activation[id] = 1.0
			}
			if d > maxDelta {
				maxDelta = d
			}
		}
		if maxDelta < epsilon {
			break
		}
	}

	normalize(activation)
	return activation
}

// hubFactorCache returns a function computing the §4.6.1 hub penalty
// min(1, hub_threshold/entity_count) per node, memoized for the query's
// lifetime since the same node is visited repeatedly across iterations.
func (r *Retriever) hubFactorCache() func(store.NodeID) float64 {
	cache := make(map[store.NodeID]float64)
	threshold := r.Config.Hub.Threshold
	return func(id store.NodeID) float64 {
		if f, ok := cache[id]; ok {
			return f
		}
		entities, err := r.Store.EntitiesForNode(id)
		f := 1.0
		if err == nil && threshold > 0 && len(entities) > threshold {
			f = float64(threshold) / float64(len(entities))
			if f > 1.0 {
				f = 1.0
			}
		}
		cache[id] = f
		return f
	}
}

func normalize(activation map[store.NodeID]float64) {
	max := 0.0
	for _, v := range activation {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return
	}
	for id, v := range activation {
		activation[id] = v / max
	}
}
