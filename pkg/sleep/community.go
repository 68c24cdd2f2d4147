package sleep

import (
	"sort"

	"github.com/hippograph/core/pkg/store"
)

// detectCommunities assigns a community id to every node, following
// graph_metrics.py's contract exactly: only the single largest connected
// component (undirected, weighted) is split into sub-communities, and only
// if that component has more than 4 nodes; every other node, including
// members of smaller components, gets community -1 (isolated). There is no
// modularity-maximization library in the retrieved pack, so the split
// itself is a bounded greedy merge: start with every node its own
// community and repeatedly merge whichever pair of adjacent communities
// gives the largest modularity gain, until no merge would help.
func detectCommunities(nodes []store.NodeID, edges []*store.Edge) map[store.NodeID]int {
	result := make(map[store.NodeID]int, len(nodes))
	for _, id := range nodes {
		result[id] = -1
	}

	adj := buildUndirectedAdjacency(edges)
	components := connectedComponents(nodes, adj)
	if len(components) == 0 {
		return result
	}
	sort.Slice(components, func(i, j int) bool { return len(components[i]) > len(components[j]) })
	largest := components[0]
	if len(largest) <= 4 {
		return result
	}

	comms := greedyModularityMerge(largest, adj)
	sort.Slice(comms, func(i, j int) bool { return len(comms[i]) > len(comms[j]) })
	for commID, members := range comms {
		for _, id := range members {
			result[id] = commID
		}
	}
	return result
}

func buildUndirectedAdjacency(edges []*store.Edge) map[store.NodeID]map[store.NodeID]float64 {
	adj := make(map[store.NodeID]map[store.NodeID]float64)
	add := func(a, b store.NodeID, w float64) {
		if adj[a] == nil {
			adj[a] = make(map[store.NodeID]float64)
		}
		adj[a][b] += w
	}
	for _, e := range edges {
		if e.Source == e.Target {
			continue
		}
		add(e.Source, e.Target, e.Weight)
		add(e.Target, e.Source, e.Weight)
	}
	return adj
}

func connectedComponents(nodes []store.NodeID, adj map[store.NodeID]map[store.NodeID]float64) [][]store.NodeID {
	visited := make(map[store.NodeID]bool, len(nodes))
	var components [][]store.NodeID
	for _, start := range nodes {
		if visited[start] {
			continue
		}
		queue := []store.NodeID{start}
		visited[start] = true
		var comp []store.NodeID
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			comp = append(comp, u)
			for v := range adj[u] {
				if !visited[v] {
					visited[v] = true
					queue = append(queue, v)
				}
			}
		}
		components = append(components, comp)
	}
	return components
}

// greedyModularityMerge runs a bounded agglomerative merge over the
// component's induced subgraph and returns the resulting communities.
func greedyModularityMerge(component []store.NodeID, adj map[store.NodeID]map[store.NodeID]float64) [][]store.NodeID {
	// community id -> member nodes, and node -> its current community id.
	membership := make(map[int][]store.NodeID, len(component))
	nodeCommunity := make(map[store.NodeID]int, len(component))
	for i, id := range component {
		membership[i] = []store.NodeID{id}
		nodeCommunity[id] = i
	}

	totalWeight := 0.0
	degree := make(map[store.NodeID]float64, len(component))
	inComponent := make(map[store.NodeID]bool, len(component))
	for _, id := range component {
		inComponent[id] = true
	}
	for _, u := range component {
		for v, w := range adj[u] {
			if !inComponent[v] {
				continue
			}
			degree[u] += w
			totalWeight += w
		}
	}
	totalWeight /= 2 // each undirected edge counted from both endpoints
	if totalWeight == 0 {
		var out [][]store.NodeID
		for _, m := range membership {
			out = append(out, m)
		}
		return out
	}

	commDegree := make(map[int]float64, len(component))
	for id, c := range nodeCommunity {
		commDegree[c] += degree[id]
	}

	for {
		bestGain := 0.0
		bestA, bestB := -1, -1
		interCommunityWeight := make(map[[2]int]float64)

		for _, u := range component {
			cu := nodeCommunity[u]
			for v, w := range adj[u] {
				if !inComponent[v] {
					continue
				}
				cv := nodeCommunity[v]
				if cu == cv {
					continue
				}
				key := pairKey(cu, cv)
				interCommunityWeight[key] += w / 2
			}
		}

		for key, w := range interCommunityWeight {
			a, b := key[0], key[1]
			gain := 2 * (w/totalWeight - (commDegree[a]*commDegree[b])/(2*totalWeight*totalWeight))
			if gain > bestGain {
				bestGain = gain
				bestA, bestB = a, b
			}
		}

		if bestA == -1 || bestGain <= 1e-12 {
			break
		}

		membership[bestA] = append(membership[bestA], membership[bestB]...)
		for _, id := range membership[bestB] {
			nodeCommunity[id] = bestA
		}
		commDegree[bestA] += commDegree[bestB]
		delete(membership, bestB)
		delete(commDegree, bestB)
	}

	out := make([][]store.NodeID, 0, len(membership))
	for _, m := range membership {
		out = append(out, m)
	}
	return out
}

func pairKey(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}
