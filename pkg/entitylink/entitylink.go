// Package entitylink canonicalizes extracted entity surface forms and
// wires them into the store: upsert the entity, link it to the node, and
// grow bidirectional entity edges between every pair of nodes that share
// one, weighted by how many entities they have in common.
package entitylink

import (
	"strings"

	"github.com/hippograph/core/pkg/store"
)

// Mention is one extracted entity occurrence, as handed back by an
// external EntityExtractor.
type Mention struct {
	Surface    string
	EntityType string
	Confidence float64
}

// Canonicalize lowercases, trims, and collapses internal whitespace so
// "  Go Lang" and "go   lang" resolve to the same entity.
func Canonicalize(surface string) string {
	fields := strings.Fields(strings.ToLower(surface))
	return strings.Join(fields, " ")
}

// minConfidence discards extractor noise below this score before linking.
const minConfidence = 0.3

// Link canonicalizes and upserts every mention, links each to nodeID, and
// for every other node that ends up sharing at least one of those
// entities, creates or strengthens a bidirectional "entity" edge. It
// returns the set of entity IDs linked to nodeID after this call.
func Link(eng *store.Engine, nodeID store.NodeID, mentions []Mention) ([]store.EntityID, error) {
	linked := make(map[store.EntityID]bool)

	for _, m := range mentions {
		if m.Confidence < minConfidence {
			continue
		}
		name := Canonicalize(m.Surface)
		if name == "" {
			continue
		}
		entityID, err := eng.UpsertEntity(name, m.EntityType)
		if err != nil {
			return nil, err
		}
		if linked[entityID] {
			continue
		}
		if err := eng.LinkNodeEntity(nodeID, entityID); err != nil {
			return nil, err
		}
		linked[entityID] = true
	}

	if err := reweightSharedEdges(eng, nodeID, linked); err != nil {
		return nil, err
	}

	ids := make([]store.EntityID, 0, len(linked))
	for id := range linked {
		ids = append(ids, id)
	}
	return ids, nil
}

// sharedEdgeWeight implements the §4.7 formula: min(1, 0.5 + 0.1*shared),
// where shared is the number of entities two nodes have in common.
func sharedEdgeWeight(shared int) float64 {
	w := 0.5 + 0.1*float64(shared)
	if w > 1.0 {
		return 1.0
	}
	return w
}

// reweightSharedEdges recomputes, for every node that shares at least one
// entity with nodeID via this call's newly-linked entities, the shared
// count across nodeID's full entity set and merges an entity edge at the
// resulting weight, keeping the higher of any existing weight.
func reweightSharedEdges(eng *store.Engine, nodeID store.NodeID, newlyLinked map[store.EntityID]bool) error {
	if len(newlyLinked) == 0 {
		return nil
	}

	allEntities, err := eng.EntitiesForNode(nodeID)
	if err != nil {
		return err
	}
	entitySet := make(map[store.EntityID]bool, len(allEntities))
	for _, id := range allEntities {
		entitySet[id] = true
	}

	candidates := make(map[store.NodeID]bool)
	for entityID := range newlyLinked {
		others, err := eng.NodesForEntity(entityID)
		if err != nil {
			return err
		}
		for _, other := range others {
			if other != nodeID {
				candidates[other] = true
			}
		}
	}

	sharedCounts := make(map[store.NodeID]int)
	for entityID := range entitySet {
		others, err := eng.NodesForEntity(entityID)
		if err != nil {
			return err
		}
		for _, other := range others {
			if candidates[other] {
				sharedCounts[other]++
			}
		}
	}

	for other, count := range sharedCounts {
		if err := mergeEntityEdge(eng, nodeID, other, count); err != nil {
			return err
		}
	}
	return nil
}

func mergeEntityEdge(eng *store.Engine, a, b store.NodeID, shared int) error {
	weight := sharedEdgeWeight(shared)

	existingIDs, err := eng.NeighborEdgeIDs(a)
	if err != nil {
		return err
	}
	for _, id := range existingIDs {
		edge, err := eng.GetEdge(id)
		if err != nil {
			return err
		}
		if edge.Type != store.EdgeTypeEntity {
			continue
		}
		if (edge.Source == a && edge.Target == b) || (edge.Source == b && edge.Target == a) {
			if weight > edge.Weight {
				return eng.UpdateEdgeWeight(id, weight, true)
			}
			return nil
		}
	}

	_, err = eng.AddEdge(&store.Edge{
		Source: a,
		Target: b,
		Weight: weight,
		Type:   store.EdgeTypeEntity,
	})
	return err
}
