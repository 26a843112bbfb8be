package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/go-legalrag/blobstore"
	"github.com/aqua777/go-legalrag/composer"
	"github.com/aqua777/go-legalrag/embedding"
	"github.com/aqua777/go-legalrag/llm"
	"github.com/aqua777/go-legalrag/metadata"
	"github.com/aqua777/go-legalrag/pipeline"
	"github.com/aqua777/go-legalrag/router"
	"github.com/aqua777/go-legalrag/summarizer"
	"github.com/aqua777/go-legalrag/vectorstore"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	blobs, err := blobstore.NewLocalStore(t.TempDir(), "/files")
	require.NoError(t, err)
	meta, err := metadata.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { meta.Close() })

	p, err := pipeline.NewPipeline(
		embedding.NewMockEmbedding(8),
		vectorstore.NewMemoryStore(),
		router.NewKeywordRouter(),
		composer.NewComposer(llm.NewMockLLM("the grounded answer")),
		pipeline.WithSummarizer(summarizer.NewSummarizer(llm.NewMockLLM("a case summary"))),
		pipeline.WithMetadataStore(meta),
		pipeline.WithBlobStore(blobs),
	)
	require.NoError(t, err)

	ts := httptest.NewServer(NewServer(p, WithFileDir(blobs.Dir())).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func buildDOCXUpload(t *testing.T, text, caseType string) (*bytes.Buffer, string) {
	t.Helper()

	var docx bytes.Buffer
	zw := zip.NewWriter(&docx)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	fmt.Fprintf(w, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:body></w:document>`, text)
	require.NoError(t, zw.Close())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "ruling.docx")
	require.NoError(t, err)
	_, err = part.Write(docx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("caseType", caseType))
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func decodeEnvelope(t *testing.T, resp *http.Response) (envelope, map[string]any) {
	t.Helper()
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env))

	data, _ := env.Data.(map[string]any)
	return env, data
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadAndRetrieve(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := buildDOCXUpload(t, "The court awarded damages to the plaintiff.", "civil")
	resp, err := http.Post(ts.URL+"/upload", contentType, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	env, data := decodeEnvelope(t, resp)
	require.True(t, env.Success)
	fileID, _ := data["file_id"].(string)
	require.NotEmpty(t, fileID)
	assert.Equal(t, "civil", data["case_category"])
	assert.Equal(t, "a case summary", data["summary"])
	assert.EqualValues(t, 1, data["chunks"])

	// The stored file is served back under its storage URL.
	fileResp, err := http.Get(ts.URL + data["storage_url"].(string))
	require.NoError(t, err)
	fileResp.Body.Close()
	assert.Equal(t, http.StatusOK, fileResp.StatusCode)

	retrieveBody := `{"question": "who was awarded damages?", "category": "civil"}`
	resp, err = http.Post(ts.URL+"/retrieve", "application/json", strings.NewReader(retrieveBody))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env, data = decodeEnvelope(t, resp)
	require.True(t, env.Success)
	assert.Equal(t, "the grounded answer", data["answer"])

	used, _ := data["used_context"].([]any)
	require.Len(t, used, 1)
	entry := used[0].(map[string]any)
	assert.Equal(t, fileID, entry["document_id"])
	assert.Equal(t, "a case summary", entry["summary"])
	assert.Contains(t, entry["storage_url"], fileID)
	assert.Contains(t, entry["snippet"], "awarded damages")
}

func TestUploadValidation(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing caseType", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "a.pdf")
		require.NoError(t, err)
		part.Write([]byte("x"))
		require.NoError(t, mw.Close())

		resp, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &body)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing file", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("caseType", "civil"))
		require.NoError(t, mw.Close())

		resp, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &body)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unsupported format", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "notes.txt")
		require.NoError(t, err)
		part.Write([]byte("plain text"))
		require.NoError(t, mw.WriteField("caseType", "civil"))
		require.NoError(t, mw.Close())

		resp, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &body)
		require.NoError(t, err)
		env, _ := decodeEnvelope(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.False(t, env.Success)
		assert.Contains(t, env.Error, "unsupported")
	})
}

func TestRetrieveValidation(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/retrieve", "application/json", strings.NewReader("{broken"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/retrieve", "application/json", strings.NewReader(`{"question": "  "}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDocumentsListAndDelete(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := buildDOCXUpload(t, "An employment dispute.", "labour")
	resp, err := http.Post(ts.URL+"/upload", contentType, body)
	require.NoError(t, err)
	_, data := decodeEnvelope(t, resp)
	fileID := data["file_id"].(string)

	resp, err = http.Get(ts.URL + "/documents")
	require.NoError(t, err)
	env, _ := decodeEnvelope(t, resp)
	records, _ := env.Data.([]any)
	require.Len(t, records, 1)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/documents/"+fileID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/documents")
	require.NoError(t, err)
	env, _ = decodeEnvelope(t, resp)
	records, _ = env.Data.([]any)
	assert.Empty(t, records)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/retrieve", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
