package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aqua777/go-legalrag/schema"
)

// docxDocumentPath is the member of the DOCX archive that holds the body.
const docxDocumentPath = "word/document.xml"

// extractDOCX extracts text from a DOCX archive. A DOCX file is a ZIP whose
// word/document.xml carries the body as WordprocessingML: paragraphs (w:p)
// containing runs of text (w:t). Paragraph and tab boundaries are rendered
// as "\n" and "\t" so downstream chunking can see them.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", schema.NewInputError("extract",
			fmt.Errorf("%w: not a valid DOCX archive: %v", ErrExtractionFailed, err))
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == docxDocumentPath {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", schema.NewInputError("extract",
			fmt.Errorf("%w: archive has no %s", ErrExtractionFailed, docxDocumentPath))
	}

	rc, err := doc.Open()
	if err != nil {
		return "", schema.NewInputError("extract",
			fmt.Errorf("%w: failed to open %s: %v", ErrExtractionFailed, docxDocumentPath, err))
	}
	defer rc.Close()

	text, err := decodeWordprocessingML(rc)
	if err != nil {
		return "", schema.NewInputError("extract",
			fmt.Errorf("%w: failed to parse %s: %v", ErrExtractionFailed, docxDocumentPath, err))
	}
	return text, nil
}

// decodeWordprocessingML walks the XML token stream instead of unmarshalling
// into a schema struct, so nested tables and unknown elements do not drop
// their text content.
func decodeWordprocessingML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var sb strings.Builder
	var inText bool

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteString("\t")
			case "br", "cr":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}
