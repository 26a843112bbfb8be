package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/aqua777/go-legalrag/schema"
)

// Metadata keys stored alongside each chunk so results can be reassembled
// without a second lookup.
const (
	metaDocumentID = "document_id"
	metaSeqIndex   = "seq_index"
	metaCategory   = "case_category"
	metaInsertSeq  = "insert_seq"
)

// ChromemStore is a vector store implementation backed by chromem-go. With a
// persist path the index survives restarts; without one it is in-memory only.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection

	mu        sync.Mutex
	dim       int
	insertSeq uint64
}

// NewChromemStore creates a ChromemStore. If persistPath is empty the store
// is in-memory only.
func NewChromemStore(persistPath, collectionName string) (*ChromemStore, error) {
	var db *chromem.DB
	if persistPath != "" {
		var err error
		db, err = chromem.NewPersistentDB(persistPath, false)
		if err != nil {
			return nil, schema.NewTransientError("vectorstore.open",
				fmt.Errorf("%w: failed to create persistent chromem db: %v", ErrIndexUnavailable, err))
		}
	} else {
		db = chromem.NewDB()
	}

	// nil embedding function: embeddings are computed upstream and passed
	// explicitly to Add/Query.
	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, schema.NewTransientError("vectorstore.open",
			fmt.Errorf("%w: failed to get or create collection: %v", ErrIndexUnavailable, err))
	}

	return &ChromemStore{
		db:         db,
		collection: collection,
		// Resume the insertion counter past anything already persisted so
		// re-opened stores keep a monotonic order.
		insertSeq: uint64(collection.Count()),
	}, nil
}

// Add upserts chunks. Re-ingesting a document produces the same chunk IDs,
// so the stale entries are deleted first and the count stays stable.
func (s *ChromemStore) Add(ctx context.Context, chunks []schema.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]chromem.Document, len(chunks))
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
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

		docs[i] = chromem.Document{
			ID:      chunk.ID,
			Content: chunk.Text,
			Metadata: map[string]string{
				metaDocumentID: chunk.DocumentID,
				metaSeqIndex:   strconv.Itoa(chunk.SeqIndex),
				metaCategory:   chunk.CaseCategory,
				metaInsertSeq:  strconv.FormatUint(s.insertSeq, 10),
			},
			Embedding: chunk.Embedding,
		}
		ids[i] = chunk.ID
		s.insertSeq++
	}

	// chromem's AddDocuments errors on duplicate IDs, so replace rather
	// than append.
	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return schema.NewTransientError("vectorstore.add",
			fmt.Errorf("%w: failed to delete stale chunks: %v", ErrIndexUnavailable, err))
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return schema.NewTransientError("vectorstore.add",
			fmt.Errorf("%w: failed to add chunks: %v", ErrIndexUnavailable, err))
	}
	return nil
}

// Query runs similarity search over the index.
func (s *ChromemStore) Query(ctx context.Context, query schema.VectorQuery) ([]schema.RetrievalResult, error) {
	if len(query.Embedding) == 0 {
		return nil, schema.NewInputError("vectorstore.query",
			fmt.Errorf("query has no embedding"))
	}
	if query.TopK <= 0 {
		return nil, schema.NewInputError("vectorstore.query",
			fmt.Errorf("topK must be positive, got %d", query.TopK))
	}

	s.mu.Lock()
	if s.dim != 0 && len(query.Embedding) != s.dim {
		s.mu.Unlock()
		return nil, schema.NewIntegrityError("vectorstore.query",
			fmt.Errorf("%w: query has dimension %d, index has %d",
				ErrDimensionMismatch, len(query.Embedding), s.dim))
	}
	s.mu.Unlock()

	var where map[string]string
	if query.CaseCategory != "" {
		where = map[string]string{metaCategory: query.CaseCategory}
	}

	// chromem rejects nResults larger than the collection, so clamp.
	n := query.TopK
	if count := s.collection.Count(); n > count {
		n = count
	}
	if n == 0 {
		return []schema.RetrievalResult{}, nil
	}

	res, err := s.collection.QueryEmbedding(ctx, query.Embedding, n, where, nil)
	if err != nil {
		return nil, schema.NewTransientError("vectorstore.query",
			fmt.Errorf("%w: query failed: %v", ErrIndexUnavailable, err))
	}

	results := make([]schema.RetrievalResult, 0, len(res))
	order := make(map[string]uint64, len(res))
	for _, doc := range res {
		seq, _ := strconv.Atoi(doc.Metadata[metaSeqIndex])
		insert, _ := strconv.ParseUint(doc.Metadata[metaInsertSeq], 10, 64)
		order[doc.ID] = insert
		results = append(results, schema.RetrievalResult{
			ChunkID:      doc.ID,
			DocumentID:   doc.Metadata[metaDocumentID],
			SeqIndex:     seq,
			Snippet:      doc.Content,
			Score:        float64(doc.Similarity),
			CaseCategory: doc.Metadata[metaCategory],
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return order[results[i].ChunkID] < order[results[j].ChunkID]
	})

	return results, nil
}

// DeleteDocument removes every chunk of a document.
func (s *ChromemStore) DeleteDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return schema.NewInputError("vectorstore.delete", fmt.Errorf("empty document id"))
	}
	where := map[string]string{metaDocumentID: documentID}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return schema.NewTransientError("vectorstore.delete",
			fmt.Errorf("%w: failed to delete chunks of %s: %v", ErrIndexUnavailable, documentID, err))
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *ChromemStore) Count() int {
	return s.collection.Count()
}
