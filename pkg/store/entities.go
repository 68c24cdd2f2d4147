package store

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// UpsertEntity returns the existing entity matching (name, entityType) or
// creates a new one. Matching is exact on the already-canonicalized name;
// canonicalization itself is the entitylink package's job.
func (e *Engine) UpsertEntity(name, entityType string) (EntityID, error) {
	if name == "" {
		return "", ErrInvalidData
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	var id EntityID
	err := e.withUpdate(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixEntity}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var ent *Entity
			if err := it.Item().Value(func(val []byte) error {
				e2, decodeErr := decodeEntity(val)
				ent = e2
				return decodeErr
			}); err != nil {
				return err
			}
			if ent.Name == name && ent.EntityType == entityType {
				id = ent.ID
				return nil
			}
		}

		newEntity := &Entity{ID: EntityID(uuid.NewString()), Name: name, EntityType: entityType}
		data, err := encodeEntity(newEntity)
		if err != nil {
			return err
		}
		if err := txn.Set(entityKey(newEntity.ID), data); err != nil {
			return err
		}
		id = newEntity.ID
		return nil
	})
	return id, err
}

// GetEntity fetches an entity by ID.
func (e *Engine) GetEntity(id EntityID) (*Entity, error) {
	var ent *Entity
	err := e.withView(func(txn *badger.Txn) error {
		item, err := txn.Get(entityKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v, decodeErr := decodeEntity(val)
			ent = v
			return decodeErr
		})
	})
	return ent, err
}

// LinkNodeEntity records that nodeID mentions entityID, in both directions.
func (e *Engine) LinkNodeEntity(nodeID NodeID, entityID EntityID) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.withUpdate(func(txn *badger.Txn) error {
		if err := txn.Set(nodeEntityLinkKey(nodeID, entityID), []byte{}); err != nil {
			return err
		}
		return txn.Set(entityIndexKey(entityID, nodeID), []byte{})
	})
}

// EntitiesForNode returns the IDs of every entity linked to nodeID.
func (e *Engine) EntitiesForNode(nodeID NodeID) ([]EntityID, error) {
	var ids []EntityID
	err := e.withView(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := nodeEntityLinkPrefix(nodeID)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, extractEntityIDFromLinkKey(it.Item().Key()))
		}
		return nil
	})
	return ids, err
}

// IterEntities calls fn for every stored entity.
func (e *Engine) IterEntities(fn func(*Entity) error) error {
	return e.withView(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixEntity}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var ent *Entity
			if err := it.Item().Value(func(val []byte) error {
				e2, decodeErr := decodeEntity(val)
				ent = e2
				return decodeErr
			}); err != nil {
				return err
			}
			if err := fn(ent); err != nil {
				return err
			}
		}
		return nil
	})
}

// NodesForEntity returns the IDs of every node linked to entityID. Used to
// build the entity-sharing edge weight (shared entity count between two
// nodes) without a full graph scan.
func (e *Engine) NodesForEntity(entityID EntityID) ([]NodeID, error) {
	var ids []NodeID
	err := e.withView(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := entityIndexPrefix(entityID)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, extractNodeIDFromIndexKey(it.Item().Key()))
		}
		return nil
	})
	return ids, err
}
