// Package blobstore keeps the original uploaded files so answers can link
// back to their source documents.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aqua777/go-legalrag/schema"
)

// Store persists raw document files and hands back stable URLs for them.
type Store interface {
	// Save writes the file and returns its URL. Saving the same document
	// ID again replaces the stored file.
	Save(ctx context.Context, documentID, filename string, r io.Reader) (string, error)
	// Open reads back a stored file by its URL.
	Open(ctx context.Context, url string) (io.ReadCloser, error)
	// Delete removes the stored files of a document. Deleting a document
	// with no stored file is not an error.
	Delete(ctx context.Context, documentID string) error
}

// LocalStore keeps files on the local filesystem under a single directory
// and serves them under a URL prefix (the HTTP layer mounts the directory
// there).
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore creates the storage directory if needed.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, schema.NewTransientError("blobstore.open",
			fmt.Errorf("failed to create storage directory %s: %w", dir, err))
	}
	if urlPrefix == "" {
		urlPrefix = "/files"
	}
	return &LocalStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Save stores the file as <documentID>_<basename> so concurrent uploads with
// the same filename never collide.
func (s *LocalStore) Save(ctx context.Context, documentID, filename string, r io.Reader) (string, error) {
	if documentID == "" {
		return "", schema.NewInputError("blobstore.save", fmt.Errorf("empty document id"))
	}
	name := storedName(documentID, filename)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", schema.NewTransientError("blobstore.save",
			fmt.Errorf("failed to create file for %s: %w", documentID, err))
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", schema.NewTransientError("blobstore.save",
			fmt.Errorf("failed to write file for %s: %w", documentID, err))
	}
	return s.urlPrefix + "/" + name, nil
}

// Open reads back a stored file.
func (s *LocalStore) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	name := path.Base(url)
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, schema.NewInputError("blobstore.open",
			fmt.Errorf("no stored file for %s: %w", url, err))
	}
	return f, nil
}

// Delete removes every file stored under the document ID.
func (s *LocalStore) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return schema.NewInputError("blobstore.delete", fmt.Errorf("empty document id"))
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, documentID+"_*"))
	if err != nil {
		return schema.NewTransientError("blobstore.delete",
			fmt.Errorf("failed to look up files for %s: %w", documentID, err))
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return schema.NewTransientError("blobstore.delete",
				fmt.Errorf("failed to remove %s: %w", m, err))
		}
	}
	return nil
}

// Dir returns the storage directory, for mounting as a static file root.
func (s *LocalStore) Dir() string {
	return s.dir
}

// storedName flattens the client-supplied filename to a safe basename.
func storedName(documentID, filename string) string {
	base := filepath.Base(filepath.Clean(filename))
	base = strings.ReplaceAll(base, string(filepath.Separator), "")
	if base == "" || base == "." {
		base = "document"
	}
	return documentID + "_" + base
}

var _ Store = (*LocalStore)(nil)
