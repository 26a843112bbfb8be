package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/go-legalrag/blobstore"
	"github.com/aqua777/go-legalrag/composer"
	"github.com/aqua777/go-legalrag/embedding"
	"github.com/aqua777/go-legalrag/extractor"
	"github.com/aqua777/go-legalrag/llm"
	"github.com/aqua777/go-legalrag/metadata"
	"github.com/aqua777/go-legalrag/router"
	"github.com/aqua777/go-legalrag/schema"
	"github.com/aqua777/go-legalrag/summarizer"
	"github.com/aqua777/go-legalrag/textsplitter"
	"github.com/aqua777/go-legalrag/vectorstore"
)

type pipelineFixture struct {
	pipeline *Pipeline
	embedder *embedding.MockEmbedding
	store    *vectorstore.MemoryStore
	answerer *llm.MockLLM
}

func newFixture(t *testing.T, opts ...Option) *pipelineFixture {
	t.Helper()

	embedder := embedding.NewMockEmbedding(8)
	store := vectorstore.NewMemoryStore()
	answerer := llm.NewMockLLM("a grounded answer")

	base := []Option{
		WithSummarizer(summarizer.NewSummarizer(llm.NewMockLLM("a summary"))),
		WithRetry(2, time.Millisecond),
	}
	p, err := NewPipeline(embedder, store, router.NewKeywordRouter(),
		composer.NewComposer(answerer), append(base, opts...)...)
	require.NoError(t, err)

	return &pipelineFixture{pipeline: p, embedder: embedder, store: store, answerer: answerer}
}

func TestIngestTextAndQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.pipeline.IngestText(ctx, "The defendant was acquitted on all counts.", "criminal")
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "criminal", doc.CaseCategory)
	assert.Equal(t, "a summary", doc.Summary)
	require.Len(t, doc.ChunkIDs, 1)
	assert.Equal(t, schema.ChunkID(doc.ID, 0), doc.ChunkIDs[0])

	answer, err := f.pipeline.Query(ctx, "The defendant was acquitted on all counts.", "criminal")
	require.NoError(t, err)
	assert.Equal(t, "a grounded answer", answer.Text)
	require.NotEmpty(t, answer.UsedContext)
	assert.Equal(t, doc.ID, answer.UsedContext[0].DocumentID)
}

func TestIngestEmptyText(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.IngestText(context.Background(), "   \n ", "civil")
	assert.True(t, schema.IsInput(err))
	assert.Zero(t, f.store.Count())
}

func TestIngestUnsupportedFormat(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Ingest(context.Background(), strings.NewReader("text"), "notes.txt", "civil")
	assert.ErrorIs(t, err, extractor.ErrUnsupportedFormat)
}

func TestIngestDOCXEndToEnd(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>The lease terminates after thirty days notice.</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	blobs, err := blobstore.NewLocalStore(t.TempDir(), "/files")
	require.NoError(t, err)
	meta, err := metadata.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer meta.Close()

	f := newFixture(t, WithBlobStore(blobs), WithMetadataStore(meta))
	ctx := context.Background()

	doc, err := f.pipeline.Ingest(ctx, bytes.NewReader(buf.Bytes()), "lease.docx", "land")
	require.NoError(t, err)
	assert.Equal(t, "/files/"+doc.ID+"_lease.docx", doc.StorageURL)

	record, err := meta.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "land", record.CaseCategory)
	assert.Equal(t, doc.StorageURL, record.StorageURL)
	assert.Equal(t, "a summary", record.Summary)

	rc, err := blobs.Open(ctx, doc.StorageURL)
	require.NoError(t, err)
	rc.Close()
}

func TestQueryGeneralSkipsRetrieval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.IngestText(ctx, "Some indexed text.", "civil")
	require.NoError(t, err)
	embedCalls := len(f.embedder.Calls)

	answer, err := f.pipeline.Query(ctx, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "a grounded answer", answer.Text)
	assert.Empty(t, answer.UsedContext)
	// No query embedding was computed.
	assert.Len(t, f.embedder.Calls, embedCalls)
}

func TestQueryCategoryFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	criminal, err := f.pipeline.IngestText(ctx, "The accused was convicted of fraud.", "criminal")
	require.NoError(t, err)
	_, err = f.pipeline.IngestText(ctx, "The tenancy agreement was void.", "land")
	require.NoError(t, err)

	answer, err := f.pipeline.Query(ctx, "what was the verdict?", "criminal")
	require.NoError(t, err)
	require.NotEmpty(t, answer.UsedContext)
	for _, r := range answer.UsedContext {
		assert.Equal(t, "criminal", r.CaseCategory)
		assert.Equal(t, criminal.ID, r.DocumentID)
	}
}

func TestQueryEmptyQuestion(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Query(context.Background(), "  ", "")
	assert.True(t, schema.IsInput(err))
}

func TestQueryDegradesWhenEmbeddingUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.IngestText(ctx, "Indexed text.", "civil")
	require.NoError(t, err)

	f.embedder.Err = schema.NewTransientError("embedding",
		embedding.ErrEmbeddingUnavailable)

	answer, err := f.pipeline.Query(ctx, "what does the contract say?", "civil")
	require.NoError(t, err)
	assert.Equal(t, RetrievalUnavailableAnswer, answer.Text)
}

func TestQueryNoMatchingContext(t *testing.T) {
	f := newFixture(t)

	answer, err := f.pipeline.Query(context.Background(), "what does the contract say?", "civil")
	require.NoError(t, err)
	assert.Equal(t, composer.NoContextAnswer, answer.Text)
}

// flakyEmbedding fails a fixed number of times before delegating.
type flakyEmbedding struct {
	inner    embedding.EmbeddingModel
	failures atomic.Int32
}

func (f *flakyEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, schema.NewTransientError("embedding", embedding.ErrEmbeddingUnavailable)
	}
	return f.inner.GetTextEmbedding(ctx, text)
}

func (f *flakyEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return f.GetTextEmbedding(ctx, query)
}

func TestIngestRetriesTransientFailures(t *testing.T) {
	flaky := &flakyEmbedding{inner: embedding.NewMockEmbedding(8)}
	flaky.failures.Store(1)

	p, err := NewPipeline(flaky, vectorstore.NewMemoryStore(), router.NewKeywordRouter(),
		composer.NewComposer(llm.NewMockLLM("answer")),
		WithRetry(3, time.Millisecond), WithConcurrency(1))
	require.NoError(t, err)

	doc, err := p.IngestText(context.Background(), "Short text.", "civil")
	require.NoError(t, err)
	assert.Len(t, doc.ChunkIDs, 1)
}

func TestIngestFailsOnInputError(t *testing.T) {
	embedder := embedding.NewMockEmbedding(8)
	embedder.Err = schema.NewInputError("embedding", embedding.ErrEmbeddingRejected)

	p, err := NewPipeline(embedder, vectorstore.NewMemoryStore(), router.NewKeywordRouter(),
		composer.NewComposer(llm.NewMockLLM("answer")),
		WithRetry(3, time.Millisecond), WithConcurrency(1))
	require.NoError(t, err)

	_, err = p.IngestText(context.Background(), "Short text.", "civil")
	assert.ErrorIs(t, err, embedding.ErrEmbeddingRejected)
	// Input errors are not retried: one chunk, one attempt.
	assert.Len(t, embedder.Calls, 1)
}

func TestSummarizationFailureDoesNotFailIngest(t *testing.T) {
	f := newFixture(t, WithSummarizer(
		summarizer.NewSummarizer(llm.NewMockLLMWithError(llm.ErrProviderUnavailable))))

	doc, err := f.pipeline.IngestText(context.Background(), "Some text.", "civil")
	require.NoError(t, err)
	assert.Empty(t, doc.Summary)
	assert.Equal(t, 1, f.store.Count())
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	meta, err := metadata.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer meta.Close()

	f := newFixture(t, WithMetadataStore(meta))
	ctx := context.Background()

	doc, err := f.pipeline.IngestText(ctx, "Disposable text.", "civil")
	require.NoError(t, err)
	require.Equal(t, 1, f.store.Count())

	require.NoError(t, f.pipeline.Delete(ctx, doc.ID))
	assert.Zero(t, f.store.Count())
	_, err = meta.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, metadata.ErrNotFound)

	assert.True(t, schema.IsInput(f.pipeline.Delete(ctx, "")))
}

func TestMultiChunkDocumentEndToEnd(t *testing.T) {
	splitter, err := textsplitter.NewSplitter(1000, 100)
	require.NoError(t, err)
	f := newFixture(t, WithSplitter(splitter))
	ctx := context.Background()

	paragraph := "The tribunal considered the admissibility of the late evidence at length. "
	doc, err := f.pipeline.IngestText(ctx, strings.Repeat(paragraph, 60), "civil")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(doc.ChunkIDs), 3)
	assert.Equal(t, len(doc.ChunkIDs), f.store.Count())

	// Seq indices are contiguous from zero.
	for i, id := range doc.ChunkIDs {
		assert.Equal(t, schema.ChunkID(doc.ID, i), id)
	}

	answer, err := f.pipeline.Query(ctx, "was the late evidence admitted?", "civil")
	require.NoError(t, err)
	require.NotEmpty(t, answer.UsedContext)
	assert.Equal(t, doc.ID, answer.UsedContext[0].DocumentID)
}

func TestReIngestSameDocumentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := schema.NewDocument("civil")
	require.NoError(t, f.pipeline.ingestText(ctx, doc, "The original clause."))
	require.Equal(t, 1, f.store.Count())

	require.NoError(t, f.pipeline.ingestText(ctx, doc, "The amended clause."))
	assert.Equal(t, 1, f.store.Count())

	answer, err := f.pipeline.Query(ctx, "The amended clause.", "civil")
	require.NoError(t, err)
	require.NotEmpty(t, answer.UsedContext)
	assert.Equal(t, "The amended clause.", answer.UsedContext[0].Snippet)
}
