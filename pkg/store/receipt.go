package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Receipt is proof that a mutation committed, tying it to the engine's
// internal transaction counter rather than a WAL sequence: badger manages
// its own value-log/WAL internally and does not expose segment offsets,
// so TxID is the identifier here instead. It is process-local: the
// counter starts again from 1 when the engine is reopened.
type Receipt struct {
	TxID      uint64    `json:"tx_id"`
	Timestamp time.Time `json:"timestamp"`
	Hash      string    `json:"hash"`
}

// NewReceipt builds a receipt for txID and computes its hash.
func NewReceipt(txID uint64, timestamp time.Time) (*Receipt, error) {
	if txID == 0 {
		return nil, fmt.Errorf("store: receipt: tx_id must be non-zero")
	}
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	r := &Receipt{TxID: txID, Timestamp: timestamp.UTC()}
	if err := r.UpdateHash(); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateHash recomputes Hash from the canonical (TxID, Timestamp) pair.
func (r *Receipt) UpdateHash() error {
	payload := struct {
		TxID      uint64 `json:"tx_id"`
		Timestamp string `json:"timestamp"`
	}{TxID: r.TxID, Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano)}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("store: receipt: hash marshal failed: %w", err)
	}
	sum := sha256.Sum256(data)
	r.Hash = hex.EncodeToString(sum[:])
	return nil
}

// MintReceipt allocates the next transaction id and returns its receipt.
// Callers that need to tie a receipt to a specific write should call this
// inside the same writeMu-held section as that write.
func (e *Engine) MintReceipt() (*Receipt, error) {
	return NewReceipt(e.nextTxID(), time.Now().UTC())
}
