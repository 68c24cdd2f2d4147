package store

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"
)

// AppendSearchLog assigns the record a monotonic ID and persists it.
func (e *Engine) AppendSearchLog(rec *SearchLogRecord) (int64, error) {
	if rec == nil {
		return 0, ErrInvalidData
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	var id int64
	err := e.withUpdate(func(txn *badger.Txn) error {
		next, err := nextCounter(txn, "search_log")
		if err != nil {
			return err
		}
		id = next
		rec.ID = id
		data, err := encodeSearchLog(rec)
		if err != nil {
			return err
		}
		return txn.Set(searchLogKey(id), data)
	})
	return id, err
}

// RecentSearchLogs returns up to limit of the most recently appended
// records, newest first.
func (e *Engine) RecentSearchLogs(limit int) ([]*SearchLogRecord, error) {
	var records []*SearchLogRecord
	err := e.withView(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = searchLogPrefix()
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration over a fixed prefix needs a seek key one past
		// the largest possible suffix.
		seek := append(append([]byte{}, searchLogPrefix()...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for it.Seek(seek); it.ValidForPrefix(searchLogPrefix()) && len(records) < limit; it.Next() {
			var rec *SearchLogRecord
			if err := it.Item().Value(func(val []byte) error {
				dec, decodeErr := decodeSearchLog(val)
				rec = dec
				return decodeErr
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

func nextCounter(txn *badger.Txn, name string) (int64, error) {
	key := counterKey(name)
	var current uint64
	item, err := txn.Get(key)
	if err == nil {
		if err := item.Value(func(val []byte) error {
			if len(val) == 8 {
				current = binary.BigEndian.Uint64(val)
			}
			return nil
		}); err != nil {
			return 0, err
		}
	} else if err != badger.ErrKeyNotFound {
		return 0, err
	}

	next := current + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := txn.Set(key, buf); err != nil {
		return 0, err
	}
	return int64(next), nil
}
