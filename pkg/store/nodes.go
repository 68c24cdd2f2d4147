package store

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// InsertNode assigns a fresh ID (if node.ID is empty) and writes the node.
// It is an error to insert over an existing ID.
func (e *Engine) InsertNode(node *Node) (NodeID, error) {
	if node == nil {
		return "", ErrInvalidData
	}
	if node.ID == "" {
		node.ID = NodeID(uuid.NewString())
	}
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now().UTC()
	}
	node.LastAccessed = node.CreatedAt

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	err := e.withUpdate(func(txn *badger.Txn) error {
		key := nodeKey(node.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		data, err := encodeNode(node)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return "", err
	}
	return node.ID, nil
}

// GetNode fetches a node by ID.
func (e *Engine) GetNode(id NodeID) (*Node, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	var node *Node
	err := e.withView(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			n, decodeErr := decodeNode(val)
			node = n
			return decodeErr
		})
	})
	return node, err
}

// TouchNode bumps a node's access tracking fields. Called whenever a node
// is surfaced by a search result, separately from any content update.
func (e *Engine) TouchNode(id NodeID, at time.Time) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.withUpdate(func(txn *badger.Txn) error {
		key := nodeKey(id)
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var node *Node
		if err := item.Value(func(val []byte) error {
			n, decodeErr := decodeNode(val)
			node = n
			return decodeErr
		}); err != nil {
			return err
		}
		node.LastAccessed = at
		node.AccessCount++
		data, err := encodeNode(node)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// UpdateNode overwrites an existing node's mutable fields, preserving
// CreatedAt/AccessCount/LastAccessed from the stored record. The caller's
// previous-version snapshot is the versions package's job, not this one:
// UpdateNode only swaps the current record.
func (e *Engine) UpdateNode(node *Node) error {
	if node == nil || node.ID == "" {
		return ErrInvalidData
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.withUpdate(func(txn *badger.Txn) error {
		key := nodeKey(node.ID)
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var existing *Node
		if err := item.Value(func(val []byte) error {
			n, decodeErr := decodeNode(val)
			existing = n
			return decodeErr
		}); err != nil {
			return err
		}

		node.CreatedAt = existing.CreatedAt
		node.LastAccessed = existing.LastAccessed
		node.AccessCount = existing.AccessCount

		data, err := encodeNode(node)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// DeleteNode removes a node along with its incident edges and entity links.
// It does not delete the node's version history, which remains browsable.
func (e *Engine) DeleteNode(id NodeID) error {
	if id == "" {
		return ErrInvalidID
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.withUpdate(func(txn *badger.Txn) error {
		if _, err := txn.Get(nodeKey(id)); err == badger.ErrKeyNotFound {
			return ErrNotFound
		} else if err != nil {
			return err
		}

		if err := deleteEdgesByPrefix(txn, outgoingIndexPrefix(id)); err != nil {
			return err
		}
		if err := deleteEdgesByPrefix(txn, incomingIndexPrefix(id)); err != nil {
			return err
		}
		if err := deleteByPrefix(txn, nodeEntityLinkPrefix(id)); err != nil {
			return err
		}

		return txn.Delete(nodeKey(id))
	})
}

// IterNodes calls fn for every stored node, stopping early if fn returns
// an error. Iteration holds a single read snapshot for its duration.
func (e *Engine) IterNodes(fn func(*Node) error) error {
	return e.withView(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixNode}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var node *Node
			if err := item.Value(func(val []byte) error {
				n, decodeErr := decodeNode(val)
				node = n
				return decodeErr
			}); err != nil {
				return fmt.Errorf("store: iter nodes: %w", err)
			}
			if err := fn(node); err != nil {
				return err
			}
		}
		return nil
	})
}

func deleteByPrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, append([]byte(nil), it.Item().Key()...))
	}
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// deleteEdgesByPrefix removes every edge reachable through an adjacency
// index prefix, along with its reverse index entry and the edge record
// itself.
func deleteEdgesByPrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var edgeIDs []EdgeID
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		edgeIDs = append(edgeIDs, extractEdgeIDFromIndexKey(it.Item().Key()))
	}

	for _, id := range edgeIDs {
		if err := deleteEdgeInTxn(txn, id); err != nil && err != ErrNotFound {
			return err
		}
	}
	return nil
}
