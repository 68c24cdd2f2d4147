package hippograph

import (
	"context"
	"fmt"

	"github.com/hippograph/core/pkg/retriever"
	"github.com/hippograph/core/pkg/store"
)

// Search runs the hybrid retrieval pipeline and logs the query for the
// search logger's later aggregation. Access tracking (TouchNode) happens
// inside the retriever itself, once per returned result, after filtering
// and ranking settle on the final result set.
func (db *DB) Search(ctx context.Context, q retriever.Query) ([]retriever.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}

	results, diag, err := db.retriever.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("hippograph: search: %w", err)
	}

	if _, logErr := db.searchLog.Record(q, results, diag); logErr != nil {
		// A search log write failure never fails the search itself.
		_ = logErr
	}

	return results, nil
}

// GetNode returns a single node by ID, for callers that already have an
// ID from a prior Search or Add and want the full record.
func (db *DB) GetNode(id store.NodeID) (*store.Node, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	return db.store.GetNode(id)
}
