// Package textsplitter splits extracted document text into overlapping
// bounded-size chunks suitable for embedding.
package textsplitter

import (
	"errors"
	"fmt"
)

const (
	// DefaultChunkSize is the default chunk ceiling in characters.
	DefaultChunkSize = 2050
	// DefaultChunkOverlap is the default overlap between consecutive chunks
	// in characters.
	DefaultChunkOverlap = 150
)

// ErrInvalidChunkParameters is returned when overlap is negative or not
// strictly smaller than the chunk size.
var ErrInvalidChunkParameters = errors.New("chunk overlap must be non-negative and smaller than chunk size")

// boundaryFn inspects a window of runes and returns a cut position in
// (0, len(window)], or -1 when the window contains no such boundary.
type boundaryFn func(window []rune) int

// Splitter cuts text into chunks of at most ChunkSize characters where
// consecutive chunks share exactly Overlap characters. Each cut is placed on
// the largest available boundary inside the window: paragraph break first,
// then sentence end, then word break, then a raw character cut.
//
// Chunk boundaries are deterministic for fixed parameters, and the
// non-overlapping spans of the output concatenate back to the input text.
type Splitter struct {
	ChunkSize int
	Overlap   int

	boundaries []boundaryFn
}

// NewSplitter creates a Splitter. Pass 0 for either parameter to use the
// defaults. Returns ErrInvalidChunkParameters if overlap >= chunkSize.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkParameters, chunkSize, overlap)
	}

	sentence, err := newSentenceBoundary()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentence boundary detector: %w", err)
	}

	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
		boundaries: []boundaryFn{
			paragraphBoundary,
			sentence.lastBoundary,
			wordBoundary,
		},
	}, nil
}

// SplitText splits text into ordered, non-empty chunks. Empty input yields
// an empty result. Text no longer than ChunkSize yields exactly one chunk.
func (s *Splitter) SplitText(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.ChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for len(runes)-start > s.ChunkSize {
		window := runes[start : start+s.ChunkSize]
		cut := s.cutPoint(window)
		chunks = append(chunks, string(window[:cut]))
		// The next chunk re-reads exactly Overlap trailing characters.
		start += cut - s.Overlap
	}
	return append(chunks, string(runes[start:]))
}

// cutPoint returns the largest-boundary cut for the window. A candidate must
// leave room for forward progress past the overlap; otherwise the next
// boundary level is tried, down to a raw cut at the window end.
func (s *Splitter) cutPoint(window []rune) int {
	for _, boundary := range s.boundaries {
		if cut := boundary(window); cut > s.Overlap && cut <= len(window) {
			return cut
		}
	}
	return len(window)
}
