package hippograph

import (
	"context"
	"errors"

	"github.com/hippograph/core/pkg/entitylink"
)

// ErrEmbedderUnavailable is returned by the no-op Embedder so the
// retriever's degrade-to-BM25+temporal path (§4.6.3) engages exactly as
// it would for a real embedder's transient failure.
var ErrEmbedderUnavailable = errors.New("hippograph: no embedder configured")

// EntityExtractor pulls named entities out of node content at ingest
// time. A total function per §6: extraction failure yields an empty
// slice, never an error that blocks the write.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]entitylink.Mention, error)
}

type noopEmbedder struct{}

func (noopEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrEmbedderUnavailable
}

type noopEntityExtractor struct{}

func (noopEntityExtractor) Extract(ctx context.Context, text string) ([]entitylink.Mention, error) {
	return nil, nil
}
