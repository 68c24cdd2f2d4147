package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

// Engine is the badger-backed store for one HippoGraph instance. All
// mutating operations serialize through a single write path; reads use
// badger's own MVCC snapshots and need no external locking.
type Engine struct {
	db     *badger.DB
	path   string
	closed atomic.Bool

	writeMu sync.Mutex // serializes the handful of multi-key mutations below

	txSeq atomic.Uint64
}

// Open opens (creating if absent) a badger database at path.
func Open(path string) (*Engine, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open failed: %w", err)
	}
	return &Engine{db: db, path: path}, nil
}

// Close flushes and closes the underlying database.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.db.Close()
}

func (e *Engine) ensureOpen() error {
	if e.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (e *Engine) withView(fn func(txn *badger.Txn) error) error {
	if err := e.ensureOpen(); err != nil {
		return err
	}
	return e.db.View(fn)
}

func (e *Engine) withUpdate(fn func(txn *badger.Txn) error) error {
	if err := e.ensureOpen(); err != nil {
		return err
	}
	return e.db.Update(fn)
}

// nextTxID returns a process-local, monotonically increasing transaction
// id used to tag receipts. It does not survive a restart, and no durable
// transaction counter is stored.
func (e *Engine) nextTxID() uint64 {
	return e.txSeq.Add(1)
}
