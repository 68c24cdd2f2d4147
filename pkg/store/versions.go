package store

import (
	"time"

	"github.com/dgraph-io/badger/v4"
)

// maxVersionsPerNode bounds version history: a save beyond this count
// prunes the oldest entries first.
const maxVersionsPerNode = 5

// SaveNodeVersion snapshots a node's current content as a new version,
// pruning anything older than the most recent maxVersionsPerNode entries.
// Callers pass the state *before* the update being applied, the way a
// version history records "what it was", not "what it became".
func (e *Engine) SaveNodeVersion(node *Node) (int, error) {
	if node == nil || node.ID == "" {
		return 0, ErrInvalidData
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	var nextVersion int
	err := e.withUpdate(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := versionPrefix(node.ID)
		it := txn.NewIterator(opts)
		defer it.Close()

		var existing []int
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			existing = append(existing, decodeVersionNumber(it.Item().Key(), len(node.ID)))
		}
		it.Close()

		maxVersion := 0
		for _, v := range existing {
			if v > maxVersion {
				maxVersion = v
			}
		}
		nextVersion = maxVersion + 1

		version := &NodeVersion{
			NodeID:        node.ID,
			VersionNumber: nextVersion,
			Content:       node.Content,
			Category:      node.Category,
			SavedAt:       time.Now().UTC(),
		}
		data, err := encodeVersion(version)
		if err != nil {
			return err
		}
		if err := txn.Set(versionKey(node.ID, nextVersion), data); err != nil {
			return err
		}

		cutoff := nextVersion - maxVersionsPerNode
		for _, v := range existing {
			if v <= cutoff {
				if err := txn.Delete(versionKey(node.ID, v)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return nextVersion, err
}

func decodeVersionNumber(key []byte, idLen int) int {
	offset := 1 + idLen + 1
	if offset+4 > len(key) {
		return 0
	}
	b := key[offset : offset+4]
	return int(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

// NodeHistory returns all retained versions of a node, oldest first.
func (e *Engine) NodeHistory(nodeID NodeID) ([]*NodeVersion, error) {
	var versions []*NodeVersion
	err := e.withView(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := versionPrefix(nodeID)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var v *NodeVersion
			if err := it.Item().Value(func(val []byte) error {
				dec, decodeErr := decodeVersion(val)
				v = dec
				return decodeErr
			}); err != nil {
				return err
			}
			versions = append(versions, v)
		}
		return nil
	})
	return versions, err
}

// RestoreNodeVersion rewrites node's content/category from a past version,
// after first saving the current state as a new version so the restore
// itself is reversible.
func (e *Engine) RestoreNodeVersion(nodeID NodeID, versionNumber int) error {
	current, err := e.GetNode(nodeID)
	if err != nil {
		return err
	}
	if _, err := e.SaveNodeVersion(current); err != nil {
		return err
	}

	history, err := e.NodeHistory(nodeID)
	if err != nil {
		return err
	}
	var target *NodeVersion
	for _, v := range history {
		if v.VersionNumber == versionNumber {
			target = v
			break
		}
	}
	if target == nil {
		return ErrNotFound
	}

	current.Content = target.Content
	current.Category = target.Category
	return e.UpdateNode(current)
}
