// Package pipeline wires extraction, chunking, embedding, storage, routing,
// and answer composition into the two top-level flows: document ingestion
// and question answering.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/aqua777/go-legalrag/blobstore"
	"github.com/aqua777/go-legalrag/embedding"
	"github.com/aqua777/go-legalrag/extractor"
	"github.com/aqua777/go-legalrag/metadata"
	"github.com/aqua777/go-legalrag/router"
	"github.com/aqua777/go-legalrag/schema"
	"github.com/aqua777/go-legalrag/textsplitter"
	"github.com/aqua777/go-legalrag/vectorstore"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 6
	// DefaultConcurrency bounds parallel embedding calls per document.
	DefaultConcurrency = 4

	// RetrievalUnavailableAnswer is returned when the index or embedding
	// provider stays unreachable after retries. The question itself is
	// fine, so this degrades instead of erroring.
	RetrievalUnavailableAnswer = "I cannot reach the document index right now, so I cannot answer from your uploaded documents. Please try again shortly."
)

// Summarizer produces a document summary for retrieval metadata.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Composer turns a routed question and retrieved context into an answer.
type Composer interface {
	Compose(ctx context.Context, question string, decision schema.RouteDecision, results []schema.RetrievalResult) (schema.Answer, error)
}

// Pipeline is the top-level ingestion and query engine.
type Pipeline struct {
	splitter   *textsplitter.Splitter
	embedder   embedding.EmbeddingModel
	store      vectorstore.VectorStore
	router     router.Router
	composer   Composer
	summarizer Summarizer
	metadata   metadata.Store
	blobs      blobstore.Store

	topK         int
	concurrency  int
	limiter      *rate.Limiter
	maxAttempts  int
	retryBackoff time.Duration
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSplitter overrides the default chunker.
func WithSplitter(s *textsplitter.Splitter) Option {
	return func(p *Pipeline) { p.splitter = s }
}

// WithSummarizer enables document summarization during ingestion.
func WithSummarizer(s Summarizer) Option {
	return func(p *Pipeline) { p.summarizer = s }
}

// WithMetadataStore enables per-document metadata persistence.
func WithMetadataStore(s metadata.Store) Option {
	return func(p *Pipeline) { p.metadata = s }
}

// WithBlobStore enables storage of the original uploaded files.
func WithBlobStore(s blobstore.Store) Option {
	return func(p *Pipeline) { p.blobs = s }
}

// WithTopK sets how many chunks each question retrieves.
func WithTopK(k int) Option {
	return func(p *Pipeline) { p.topK = k }
}

// WithConcurrency bounds parallel embedding calls per document.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.concurrency = n }
}

// WithRateLimit paces embedding calls to stay under provider quotas.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(p *Pipeline) { p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithRetry sets the retry budget for transient provider failures.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(p *Pipeline) {
		p.maxAttempts = maxAttempts
		p.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a Pipeline. The summarizer, metadata store, and blob
// store are optional; everything else is required.
func NewPipeline(embedder embedding.EmbeddingModel, store vectorstore.VectorStore, rtr router.Router, cmp Composer, opts ...Option) (*Pipeline, error) {
	splitter, err := textsplitter.NewSplitter(
		textsplitter.DefaultChunkSize, textsplitter.DefaultChunkOverlap)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		splitter:     splitter,
		embedder:     embedder,
		store:        store,
		router:       rtr,
		composer:     cmp,
		topK:         DefaultTopK,
		concurrency:  DefaultConcurrency,
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: defaultRetryBackoff,
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.embedder == nil || p.store == nil || p.router == nil || p.composer == nil {
		return nil, schema.NewInputError("pipeline.new",
			fmt.Errorf("embedder, store, router, and composer are required"))
	}
	return p, nil
}

// Ingest stores the uploaded file, extracts its text, and indexes it under
// the given case category.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader, filename, caseCategory string) (*schema.Document, error) {
	if !extractor.Supported(filename) {
		return nil, schema.NewInputError("ingest",
			fmt.Errorf("%w: %s", extractor.ErrUnsupportedFormat, filename))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, schema.NewInputError("ingest",
			fmt.Errorf("failed to read upload: %w", err))
	}

	doc := schema.NewDocument(caseCategory)

	if p.blobs != nil {
		url, err := p.blobs.Save(ctx, doc.ID, filename, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		doc.StorageURL = url
	}

	text, err := extractor.Extract(bytes.NewReader(data), filename)
	if err != nil {
		return nil, err
	}

	if err := p.ingestText(ctx, doc, text); err != nil {
		return nil, err
	}
	return doc, nil
}

// IngestText indexes already-extracted text as a new document. Used by the
// drop-directory watcher for plain text and by tests.
func (p *Pipeline) IngestText(ctx context.Context, text, caseCategory string) (*schema.Document, error) {
	doc := schema.NewDocument(caseCategory)
	if err := p.ingestText(ctx, doc, text); err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *Pipeline) ingestText(ctx context.Context, doc *schema.Document, text string) error {
	if strings.TrimSpace(text) == "" {
		return schema.NewInputError("ingest",
			fmt.Errorf("document %s has no extractable text", doc.ID))
	}

	pieces := p.splitter.SplitText(text)
	chunks := make([]schema.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = schema.NewChunk(doc, i, piece)
	}

	if err := p.embedChunks(ctx, chunks); err != nil {
		return err
	}
	if err := p.store.Add(ctx, chunks); err != nil {
		return err
	}

	doc.ChunkIDs = make([]string, len(chunks))
	for i, c := range chunks {
		doc.ChunkIDs[i] = c.ID
	}

	// Summarization is best effort: a missing summary degrades answer
	// enrichment, not retrieval.
	if p.summarizer != nil {
		summary, err := p.summarizer.Summarize(ctx, text)
		if err != nil {
			p.logger.Warn("summarization failed", "document", doc.ID, "error", err)
		} else {
			doc.Summary = summary
		}
	}

	if p.metadata != nil {
		record := schema.DocumentRecord{
			DocumentID:   doc.ID,
			CaseCategory: doc.CaseCategory,
			StorageURL:   doc.StorageURL,
			Summary:      doc.Summary,
		}
		if err := p.metadata.Put(ctx, record); err != nil {
			return err
		}
	}

	p.logger.Info("document ingested",
		"document", doc.ID, "category", doc.CaseCategory, "chunks", len(chunks))
	return nil
}

// embedChunks fills in chunk embeddings with bounded concurrency, pacing
// calls through the rate limiter when one is configured.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []schema.Chunk) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := range chunks {
		g.Go(func() error {
			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					return err
				}
			}
			return withRetry(ctx, p.maxAttempts, p.retryBackoff, func() error {
				emb, err := p.embedder.GetTextEmbedding(ctx, chunks[i].Text)
				if err != nil {
					return err
				}
				chunks[i].Embedding = emb
				return nil
			})
		})
	}
	return g.Wait()
}

// Query answers a question. General questions skip retrieval; grounded
// questions search the index filtered by case category. Transient retrieval
// failures degrade to a fixed answer rather than an error, so only broken
// input or a failed generation surfaces as an error.
func (p *Pipeline) Query(ctx context.Context, question, caseCategory string) (schema.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return schema.Answer{}, schema.NewInputError("query", fmt.Errorf("empty question"))
	}

	decision, err := p.router.Route(ctx, question, caseCategory)
	if err != nil {
		p.logger.Warn("routing failed, assuming grounded", "error", err)
		decision = schema.RouteDecision{Route: schema.RouteGrounded, CaseCategory: caseCategory}
	}

	if decision.Route == schema.RouteGeneral {
		return p.composer.Compose(ctx, question, decision, nil)
	}

	var queryEmbedding []float32
	err = withRetry(ctx, p.maxAttempts, p.retryBackoff, func() error {
		var err error
		queryEmbedding, err = p.embedder.GetQueryEmbedding(ctx, question)
		return err
	})
	if err != nil {
		if schema.IsInput(err) {
			return schema.Answer{}, err
		}
		p.logger.Warn("query embedding unavailable", "error", err)
		return schema.Answer{Text: RetrievalUnavailableAnswer}, nil
	}

	results, err := p.store.Query(ctx, schema.VectorQuery{
		Embedding:    queryEmbedding,
		TopK:         p.topK,
		CaseCategory: decision.CaseCategory,
	})
	if err != nil {
		if schema.IsInput(err) || schema.IsIntegrity(err) {
			return schema.Answer{}, err
		}
		p.logger.Warn("vector search unavailable", "error", err)
		return schema.Answer{Text: RetrievalUnavailableAnswer}, nil
	}

	return p.composer.Compose(ctx, question, decision, results)
}

// Delete removes a document everywhere: index, metadata, stored file.
func (p *Pipeline) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return schema.NewInputError("delete", fmt.Errorf("empty document id"))
	}

	errs := []error{p.store.DeleteDocument(ctx, documentID)}
	if p.metadata != nil {
		errs = append(errs, p.metadata.Delete(ctx, documentID))
	}
	if p.blobs != nil {
		errs = append(errs, p.blobs.Delete(ctx, documentID))
	}
	return errors.Join(errs...)
}

// Metadata exposes the metadata store for answer enrichment at the API
// layer. It is nil when no store is configured.
func (p *Pipeline) Metadata() metadata.Store {
	return p.metadata
}
