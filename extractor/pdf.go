package extractor

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/aqua777/go-legalrag/schema"
)

// extractPDF extracts text with ledongthuc/pdf. The library panics on some
// malformed inputs, so the recover maps those onto ErrExtractionFailed too.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = schema.NewInputError("extract",
				fmt.Errorf("%w: malformed PDF: %v", ErrExtractionFailed, r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", schema.NewInputError("extract",
			fmt.Errorf("%w: failed to open PDF: %v", ErrExtractionFailed, err))
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", schema.NewInputError("extract",
			fmt.Errorf("%w: failed to extract PDF text: %v", ErrExtractionFailed, err))
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", schema.NewInputError("extract",
			fmt.Errorf("%w: failed to read PDF text: %v", ErrExtractionFailed, err))
	}

	return sb.String(), nil
}
