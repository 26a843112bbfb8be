// Package extractor converts raw document byte streams (PDF, DOCX) into
// plain text. Extraction is all-or-nothing per document: a document with no
// extractable text yields an empty string, not an error.
package extractor

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aqua777/go-legalrag/schema"
)

var (
	// ErrUnsupportedFormat is returned for extensions other than the PDF
	// and DOCX variants.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtractionFailed is returned when the underlying parser cannot
	// read the stream (corrupt file, wrong encoding, password-protected).
	ErrExtractionFailed = errors.New("document extraction failed")
)

// SupportedExtensions lists the accepted file extensions.
var SupportedExtensions = []string{".pdf", ".docx", ".doc"}

// Supported reports whether the file name carries an extractable extension.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Extract reads the document stream and returns its plain text. The file
// name is used only to determine the format by extension.
func Extract(r io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	data, err := io.ReadAll(r)
	if err != nil {
		return "", schema.NewInputError("extract",
			fmt.Errorf("%w: failed to read stream: %v", ErrExtractionFailed, err))
	}

	switch ext {
	case ".pdf":
		return extractPDF(data)
	case ".docx", ".doc":
		return extractDOCX(data)
	default:
		return "", schema.NewInputError("extract",
			fmt.Errorf("%w: %q (only PDF and DOCX are supported)", ErrUnsupportedFormat, ext))
	}
}
