package sleep

import "github.com/hippograph/core/pkg/store"

// pageRank computes PageRank over the directed edge list by power
// iteration, ported from graph_metrics.py's use of networkx.pagerank
// (which is itself power iteration with the same damping/convergence
// knobs). Isolated graphs with no edges get a uniform 1/n score, matching
// the original's fallback. The result is normalized by dividing through
// the maximum score, also matching the original.
func pageRank(nodes []store.NodeID, edges []*store.Edge, damping float64, maxIter int, tol float64) map[store.NodeID]float64 {
	n := len(nodes)
	pr := make(map[store.NodeID]float64, n)
	if n == 0 {
		return pr
	}
	for _, id := range nodes {
		pr[id] = 1.0 / float64(n)
	}
	if len(edges) == 0 {
		return pr
	}

	outWeight := make(map[store.NodeID]float64, n)
	outgoing := make(map[store.NodeID][]weightedEdge, n)
	for _, e := range edges {
		outgoing[e.Source] = append(outgoing[e.Source], weightedEdge{target: e.Target, weight: e.Weight})
		outWeight[e.Source] += e.Weight
	}

	for iter := 0; iter < maxIter; iter++ {
		next := make(map[store.NodeID]float64, n)
		dangling := 0.0
		for _, id := range nodes {
			if outWeight[id] == 0 {
				dangling += pr[id]
			}
		}
		base := (1 - damping) / float64(n)
		danglingShare := damping * dangling / float64(n)
		for _, id := range nodes {
			next[id] = base + danglingShare
		}
		for _, id := range nodes {
			w := outWeight[id]
			if w == 0 {
				continue
			}
			for _, oe := range outgoing[id] {
				next[oe.target] += damping * pr[id] * (oe.weight / w)
			}
		}

		delta := 0.0
		for _, id := range nodes {
			delta += abs(next[id] - pr[id])
		}
		pr = next
		if delta < tol {
			break
		}
	}

	max := 0.0
	for _, v := range pr {
		if v > max {
			max = v
		}
	}
	if max > 0 {
		for id, v := range pr {
			pr[id] = v / max
		}
	}
	return pr
}

type weightedEdge struct {
	target store.NodeID
	weight float64
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
