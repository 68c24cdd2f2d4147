package store

import (
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// AddEdge creates an edge and its forward/reverse adjacency index entries,
// or, per §4.1, looks up and reweights the edge already keyed by the same
// (source, target, type) instead of creating a duplicate. Every edge type
// except temporal_chain is treated as undirected for this lookup, so
// (a,b,association) and (b,a,association) collide; temporal_chain keeps
// Source/Target as a time-ordered pair and only collides on an exact
// direction match.
func (e *Engine) AddEdge(edge *Edge) (EdgeID, error) {
	if edge == nil || edge.Source == "" || edge.Target == "" {
		return "", ErrInvalidData
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	var resultID EdgeID
	err := e.withUpdate(func(txn *badger.Txn) error {
		for _, id := range []NodeID{edge.Source, edge.Target} {
			if _, err := txn.Get(nodeKey(id)); err == badger.ErrKeyNotFound {
				return ErrNotFound
			} else if err != nil {
				return err
			}
		}

		existing, err := findEdgeInTxn(txn, edge.Source, edge.Target, edge.Type)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Weight = edge.Weight
			existing.LastTouchedAt = time.Now().UTC()
			data, err := encodeEdge(existing)
			if err != nil {
				return err
			}
			resultID = existing.ID
			return txn.Set(edgeKey(existing.ID), data)
		}

		if edge.ID == "" {
			edge.ID = EdgeID(uuid.NewString())
		}
		if edge.CreatedAt.IsZero() {
			edge.CreatedAt = time.Now().UTC()
		}
		if edge.LastTouchedAt.IsZero() {
			edge.LastTouchedAt = edge.CreatedAt
		}

		data, err := encodeEdge(edge)
		if err != nil {
			return err
		}
		if err := txn.Set(edgeKey(edge.ID), data); err != nil {
			return err
		}
		if err := txn.Set(outgoingIndexKey(edge.Source, edge.ID), []byte{}); err != nil {
			return err
		}
		resultID = edge.ID
		return txn.Set(incomingIndexKey(edge.Target, edge.ID), []byte{})
	})
	if err != nil {
		return "", err
	}
	return resultID, nil
}

// findEdgeInTxn looks for an edge of edgeType already touching source,
// matching target either exactly (direction-sensitive types) or in
// either direction (undirected types).
func findEdgeInTxn(txn *badger.Txn, source, target NodeID, edgeType EdgeType) (*Edge, error) {
	directed := edgeType == EdgeTypeTemporalChain

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false

	scan := func(prefix []byte) (*Edge, error) {
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := extractEdgeIDFromIndexKey(it.Item().Key())
			item, err := txn.Get(edgeKey(id))
			if err != nil {
				return nil, err
			}
			var candidate *Edge
			if err := item.Value(func(val []byte) error {
				ed, decodeErr := decodeEdge(val)
				candidate = ed
				return decodeErr
			}); err != nil {
				return nil, err
			}
			if candidate.Type != edgeType {
				continue
			}
			if candidate.Source == source && candidate.Target == target {
				return candidate, nil
			}
			if !directed && candidate.Source == target && candidate.Target == source {
				return candidate, nil
			}
		}
		return nil, nil
	}

	if found, err := scan(outgoingIndexPrefix(source)); err != nil || found != nil {
		return found, err
	}
	return scan(incomingIndexPrefix(source))
}

// GetEdge fetches an edge by ID.
func (e *Engine) GetEdge(id EdgeID) (*Edge, error) {
	var edge *Edge
	err := e.withView(func(txn *badger.Txn) error {
		item, err := txn.Get(edgeKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			ed, decodeErr := decodeEdge(val)
			edge = ed
			return decodeErr
		})
	})
	return edge, err
}

// UpdateEdgeWeight rewrites an edge's weight. touch controls whether
// LastTouchedAt advances to now: the entity linker touches on merge, but
// the stale-edge decay step must NOT touch what it decays, or the edge
// would never again look stale.
func (e *Engine) UpdateEdgeWeight(id EdgeID, weight float64, touch bool) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.withUpdate(func(txn *badger.Txn) error {
		item, err := txn.Get(edgeKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var edge *Edge
		if err := item.Value(func(val []byte) error {
			ed, decodeErr := decodeEdge(val)
			edge = ed
			return decodeErr
		}); err != nil {
			return err
		}
		edge.Weight = weight
		if touch {
			edge.LastTouchedAt = time.Now().UTC()
		}
		data, err := encodeEdge(edge)
		if err != nil {
			return err
		}
		return txn.Set(edgeKey(id), data)
	})
}

// RemoveEdge deletes an edge and both of its adjacency index entries.
func (e *Engine) RemoveEdge(id EdgeID) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.withUpdate(func(txn *badger.Txn) error {
		return deleteEdgeInTxn(txn, id)
	})
}

func deleteEdgeInTxn(txn *badger.Txn, id EdgeID) error {
	item, err := txn.Get(edgeKey(id))
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var edge *Edge
	if err := item.Value(func(val []byte) error {
		ed, decodeErr := decodeEdge(val)
		edge = ed
		return decodeErr
	}); err != nil {
		return err
	}

	if err := txn.Delete(outgoingIndexKey(edge.Source, id)); err != nil {
		return err
	}
	if err := txn.Delete(incomingIndexKey(edge.Target, id)); err != nil {
		return err
	}
	return txn.Delete(edgeKey(id))
}

// NeighborEdgeIDs returns the IDs of every edge touching nodeID, in either
// direction.
func (e *Engine) NeighborEdgeIDs(nodeID NodeID) ([]EdgeID, error) {
	var ids []EdgeID
	err := e.withView(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		outIt := txn.NewIterator(opts)
		defer outIt.Close()
		outPrefix := outgoingIndexPrefix(nodeID)
		for outIt.Seek(outPrefix); outIt.ValidForPrefix(outPrefix); outIt.Next() {
			ids = append(ids, extractEdgeIDFromIndexKey(outIt.Item().Key()))
		}

		inIt := txn.NewIterator(opts)
		defer inIt.Close()
		inPrefix := incomingIndexPrefix(nodeID)
		for inIt.Seek(inPrefix); inIt.ValidForPrefix(inPrefix); inIt.Next() {
			ids = append(ids, extractEdgeIDFromIndexKey(inIt.Item().Key()))
		}
		return nil
	})
	return ids, err
}

// IterEdges calls fn for every stored edge.
func (e *Engine) IterEdges(fn func(*Edge) error) error {
	return e.withView(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixEdge}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var edge *Edge
			if err := it.Item().Value(func(val []byte) error {
				ed, decodeErr := decodeEdge(val)
				edge = ed
				return decodeErr
			}); err != nil {
				return err
			}
			if err := fn(edge); err != nil {
				return err
			}
		}
		return nil
	})
}
