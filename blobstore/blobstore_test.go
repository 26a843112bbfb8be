package blobstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/go-legalrag/schema"
)

func TestSaveOpenRoundTrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/files")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Save(ctx, "doc-1", "ruling.pdf", strings.NewReader("pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/files/doc-1_ruling.pdf", url)

	rc, err := s.Open(ctx, url)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
}

func TestSaveSanitizesFilename(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/files")
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "doc-1", "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/files/doc-1_passwd", url)
}

func TestSaveReplaces(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/files")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Save(ctx, "doc-1", "brief.pdf", strings.NewReader("v1"))
	require.NoError(t, err)
	url, err := s.Save(ctx, "doc-1", "brief.pdf", strings.NewReader("v2"))
	require.NoError(t, err)

	rc, err := s.Open(ctx, url)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestDelete(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/files")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Save(ctx, "doc-1", "a.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	keep, err := s.Save(ctx, "doc-2", "b.pdf", strings.NewReader("y"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "doc-1"))

	_, err = s.Open(ctx, url)
	assert.True(t, schema.IsInput(err))
	_, err = s.Open(ctx, keep)
	assert.NoError(t, err)

	// Deleting again is a no-op.
	assert.NoError(t, s.Delete(ctx, "doc-1"))
}

func TestEmptyDocumentID(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/files")
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "", "a.pdf", strings.NewReader("x"))
	assert.True(t, schema.IsInput(err))
	assert.True(t, schema.IsInput(s.Delete(context.Background(), "")))
}
