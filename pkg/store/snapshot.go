package store

import (
	"fmt"
	"io"
)

// Snapshot writes a full backup of the database to w, using badger's
// native incremental-backup format. since is the version returned by a
// prior Snapshot call, or 0 for a full backup.
func (e *Engine) Snapshot(w io.Writer, since uint64) (uint64, error) {
	if err := e.ensureOpen(); err != nil {
		return 0, err
	}
	version, err := e.db.Backup(w, since)
	if err != nil {
		return 0, fmt.Errorf("store: snapshot failed: %w", err)
	}
	return version, nil
}

// Restore loads a backup stream produced by Snapshot into the current
// database, replacing its contents. The engine must not be serving other
// operations while this runs.
func (e *Engine) Restore(r io.Reader) error {
	if err := e.ensureOpen(); err != nil {
		return err
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if err := e.db.DropAll(); err != nil {
		return fmt.Errorf("store: restore failed: %w", err)
	}
	if err := e.db.Load(r, 256); err != nil {
		return fmt.Errorf("store: restore failed: %w", err)
	}
	return nil
}
