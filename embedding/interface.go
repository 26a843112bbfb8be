// Package embedding converts text into fixed-length vectors via an external
// embedding provider.
package embedding

import (
	"context"
	"errors"
)

// Failure classes of the embedding boundary. Callers pick a retry policy
// from these: unavailability is retryable, rejection is not.
var (
	// ErrEmbeddingUnavailable marks transient provider failures
	// (connectivity, rate limits, 5xx).
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrEmbeddingRejected marks permanent rejections of the input
	// (e.g. input too long for the model).
	ErrEmbeddingRejected = errors.New("embedding request rejected")
)

// EmbeddingModel is the interface for generating text embeddings.
// Implementations must return vectors of a fixed dimensionality per model
// and have no side effects.
type EmbeddingModel interface {
	// GetTextEmbedding generates an embedding for a document chunk.
	GetTextEmbedding(ctx context.Context, text string) ([]float32, error)
	// GetQueryEmbedding generates an embedding for a search query.
	// Often identical to GetTextEmbedding, but some models treat them
	// differently.
	GetQueryEmbedding(ctx context.Context, query string) ([]float32, error)
}
