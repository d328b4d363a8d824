// Package embedding provides text embedding via ONNX with an LRU cache.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when embedding is requested for empty or
// whitespace-only text. The enclosing request must fail rather than fall back
// to a zero vector, which would corrupt similarity ranking.
var ErrEmptyText = errors.New("cannot embed empty text")

// ErrModelUnavailable is returned when the underlying embedding model cannot
// be reached or loaded.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Embedder produces vector embeddings for text. Implementations must be
// deterministic: identical text always yields an identical vector for a fixed
// model, and EmbedBatch is equivalent to per-item Embed calls in order.
// Vectors are L2-normalized so inner product equals cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelID() string
	Close() error
}
