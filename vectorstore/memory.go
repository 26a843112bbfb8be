package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aqua777/go-legalrag/embedding"
	"github.com/aqua777/go-legalrag/schema"
)

type memoryEntry struct {
	chunk     schema.Chunk
	insertSeq uint64
}

// MemoryStore is an in-memory vector store with brute-force cosine search.
// It is used in tests and as a fallback when no index path is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]*memoryEntry
	dim       int
	insertSeq uint64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]*memoryEntry{}}
}

// Add upserts chunks. Replacing a chunk keeps its original insertion order.
func (s *MemoryStore) Add(ctx context.Context, chunks []schema.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return schema.NewInputError("vectorstore.add",
				fmt.Errorf("chunk %s has no embedding", chunk.ID))
		}
		if s.dim == 0 {
			s.dim = len(chunk.Embedding)
		}
		if len(chunk.Embedding) != s.dim {
			return schema.NewIntegrityError("vectorstore.add",
				fmt.Errorf("%w: chunk %s has dimension %d, index has %d",
					ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), s.dim))
		}

		if existing, ok := s.entries[chunk.ID]; ok {
			existing.chunk = chunk
			continue
		}
		s.entries[chunk.ID] = &memoryEntry{chunk: chunk, insertSeq: s.insertSeq}
		s.insertSeq++
	}
	return nil
}

// Query scans all entries and returns the topK most similar, best first.
func (s *MemoryStore) Query(ctx context.Context, query schema.VectorQuery) ([]schema.RetrievalResult, error) {
	if len(query.Embedding) == 0 {
		return nil, schema.NewInputError("vectorstore.query",
			fmt.Errorf("query has no embedding"))
	}
	if query.TopK <= 0 {
		return nil, schema.NewInputError("vectorstore.query",
			fmt.Errorf("topK must be positive, got %d", query.TopK))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dim != 0 && len(query.Embedding) != s.dim {
		return nil, schema.NewIntegrityError("vectorstore.query",
			fmt.Errorf("%w: query has dimension %d, index has %d",
				ErrDimensionMismatch, len(query.Embedding), s.dim))
	}

	type scored struct {
		entry *memoryEntry
		score float64
	}
	candidates := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		if query.CaseCategory != "" && e.chunk.CaseCategory != query.CaseCategory {
			continue
		}
		score, err := embedding.CosineSimilarity(query.Embedding, e.chunk.Embedding)
		if err != nil {
			return nil, schema.NewIntegrityError("vectorstore.query", err)
		}
		candidates = append(candidates, scored{entry: e, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.insertSeq < candidates[j].entry.insertSeq
	})

	if len(candidates) > query.TopK {
		candidates = candidates[:query.TopK]
	}

	results := make([]schema.RetrievalResult, len(candidates))
	for i, c := range candidates {
		results[i] = schema.RetrievalResult{
			ChunkID:      c.entry.chunk.ID,
			DocumentID:   c.entry.chunk.DocumentID,
			SeqIndex:     c.entry.chunk.SeqIndex,
			Snippet:      c.entry.chunk.Text,
			Score:        c.score,
			CaseCategory: c.entry.chunk.CaseCategory,
		}
	}
	return results, nil
}

// DeleteDocument removes every chunk of a document.
func (s *MemoryStore) DeleteDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return schema.NewInputError("vectorstore.delete", fmt.Errorf("empty document id"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if e.chunk.DocumentID == documentID {
			delete(s.entries, id)
		}
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
