// Package dup implements ingest-time near-duplicate detection: cosine
// similarity against the top-5 ANN neighbors of a new embedding, checked
// against block/warn thresholds.
package dup

import (
	"context"

	"github.com/hippograph/core/pkg/ann"
)

// Config tunes the block/warn thresholds. Both are cosine similarity in
// [0,1]; Block must be >= Warn.
type Config struct {
	BlockThreshold float64
	WarnThreshold  float64
}

// DefaultConfig matches §4.8: block at 0.95, warn at 0.90.
func DefaultConfig() Config {
	return Config{BlockThreshold: 0.95, WarnThreshold: 0.90}
}

const candidateCount = 5

// Verdict is the outcome of a duplicate check.
type Verdict struct {
	Blocked    bool
	Warned     bool
	ExistingID string
	Similarity float64
}

// Check searches index for the candidateCount closest neighbors to
// embedding and classifies the result: Blocked when the top match meets
// BlockThreshold (reject unless the caller forces the write), Warned when
// it meets WarnThreshold but not Block (accept with a warning).
func Check(ctx context.Context, index *ann.Index, embedding []float32, cfg Config) (Verdict, error) {
	results, err := index.Search(ctx, embedding, candidateCount, cfg.WarnThreshold)
	if err != nil {
		return Verdict{}, err
	}
	if len(results) == 0 {
		return Verdict{}, nil
	}

	top := results[0]
	sim := float64(top.Score)
	switch {
	case sim >= cfg.BlockThreshold:
		return Verdict{Blocked: true, ExistingID: top.ID, Similarity: sim}, nil
	case sim >= cfg.WarnThreshold:
		return Verdict{Warned: true, ExistingID: top.ID, Similarity: sim}, nil
	default:
		return Verdict{}, nil
	}
}
