// Package metadata persists per-document records (category, storage URL,
// summary) alongside the vector index. The query path never reads it; it
// serves the API layer's answer enrichment and document listing.
package metadata

import (
	"context"
	"errors"

	"github.com/aqua777/go-legalrag/schema"
)

// ErrNotFound is returned when no record exists for a document ID.
var ErrNotFound = errors.New("document record not found")

// Store is the interface for document metadata persistence.
type Store interface {
	// Put inserts or replaces the record for its document ID.
	Put(ctx context.Context, record schema.DocumentRecord) error
	// Get returns the record for a document ID, or ErrNotFound.
	Get(ctx context.Context, documentID string) (schema.DocumentRecord, error)
	// List returns all records in insertion order.
	List(ctx context.Context) ([]schema.DocumentRecord, error)
	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, documentID string) error
	// Close releases the underlying storage.
	Close() error
}
