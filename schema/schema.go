// Package schema defines the core data model shared by the ingestion and
// query pipelines: documents, chunks, retrieval results and route decisions.
package schema

import (
	"fmt"

	"github.com/google/uuid"
)

// Document is a legal document registered at ingestion time.
// It is immutable after creation except for summary population.
type Document struct {
	ID           string   `json:"id"`
	CaseCategory string   `json:"case_category"`
	StorageURL   string   `json:"storage_url,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	ChunkIDs     []string `json:"chunk_ids,omitempty"`
}

// NewDocument creates a Document with a fresh identifier.
func NewDocument(caseCategory string) *Document {
	return &Document{
		ID:           uuid.New().String(),
		CaseCategory: caseCategory,
	}
}

// Chunk is the atomic unit of embedding and retrieval: a bounded text span
// cut from a document. CaseCategory is denormalized from the owning document
// at creation time; there is no mutation path afterwards.
type Chunk struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	SeqIndex     int       `json:"seq_index"`
	Text         string    `json:"text"`
	Embedding    []float32 `json:"embedding,omitempty"`
	CaseCategory string    `json:"case_category"`
}

// ChunkID returns the deterministic identifier for a chunk of a document.
// Re-ingesting the same document identifier produces the same chunk IDs, so
// a retried ingestion overwrites instead of duplicating.
func ChunkID(documentID string, seqIndex int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, seqIndex)
}

// NewChunk creates a chunk owned by doc at the given sequence index.
func NewChunk(doc *Document, seqIndex int, text string) Chunk {
	return Chunk{
		ID:           ChunkID(doc.ID, seqIndex),
		DocumentID:   doc.ID,
		SeqIndex:     seqIndex,
		Text:         text,
		CaseCategory: doc.CaseCategory,
	}
}

// RetrievalResult is one scored match from the vector index, constructed
// transiently per query and never persisted. Summary and StorageURL are
// filled in by the API layer from the metadata store.
type RetrievalResult struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	SeqIndex     int     `json:"seq_index"`
	Snippet      string  `json:"snippet"`
	Score        float64 `json:"score"`
	CaseCategory string  `json:"case_category"`
	Summary      string  `json:"summary,omitempty"`
	StorageURL   string  `json:"storage_url,omitempty"`
}

// Route classifies a question as answerable without document context or as
// requiring retrieval.
type Route string

const (
	// RouteGeneral means the question needs no document context.
	RouteGeneral Route = "general"
	// RouteGrounded means the question should be answered from retrieved
	// document context.
	RouteGrounded Route = "grounded"
)

// RouteDecision is the outcome of query routing. CaseCategory, when set,
// restricts retrieval to chunks of that category.
type RouteDecision struct {
	Route        Route  `json:"route"`
	CaseCategory string `json:"case_category,omitempty"`
}

// VectorQuery is a nearest-neighbour search request against the vector
// index. CaseCategory is an exact eligibility filter, not a re-rank.
type VectorQuery struct {
	Embedding    []float32
	TopK         int
	CaseCategory string
}

// Answer is the final output of the query pipeline: the generated text plus
// the retrieval results that were actually used as context. UsedContext is
// empty for general answers.
type Answer struct {
	Text        string            `json:"answer"`
	UsedContext []RetrievalResult `json:"used_context"`
}

// DocumentRecord is the row emitted once per ingested document to the
// external metadata store. The core pipeline writes it and never reads it
// back; the API layer queries it.
type DocumentRecord struct {
	DocumentID   string `json:"document_id"`
	CaseCategory string `json:"case_category"`
	StorageURL   string `json:"storage_url"`
	Summary      string `json:"summary"`
}
