// Package vectorstore provides storage and similarity search over chunk
// embeddings.
package vectorstore

import (
	"context"
	"errors"

	"github.com/aqua777/go-legalrag/schema"
)

var (
	// ErrIndexUnavailable is returned when the index cannot be read or
	// written.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrDimensionMismatch is returned when an embedding's dimension does
	// not match the dimension the index was created with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// VectorStore is the interface for storing and querying chunk embeddings.
type VectorStore interface {
	// Add upserts chunks into the store. Chunks that share an ID with a
	// stored chunk replace it.
	Add(ctx context.Context, chunks []schema.Chunk) error
	// Query finds the chunks most similar to the query embedding, best
	// first. Ordering is deterministic: equal scores keep insertion order.
	Query(ctx context.Context, query schema.VectorQuery) ([]schema.RetrievalResult, error)
	// DeleteDocument removes every chunk belonging to the document.
	DeleteDocument(ctx context.Context, documentID string) error
	// Count returns the number of stored chunks.
	Count() int
}
