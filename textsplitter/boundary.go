package textsplitter

import (
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// paragraphBoundary cuts after the last paragraph break in the window.
func paragraphBoundary(window []rune) int {
	for i := len(window) - 2; i >= 0; i-- {
		if window[i] == '\n' && window[i+1] == '\n' {
			return i + 2
		}
	}
	return -1
}

// wordBoundary cuts after the last whitespace in the window.
func wordBoundary(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == ' ' || window[i] == '\n' || window[i] == '\t' {
			return i + 1
		}
	}
	return -1
}

// sentenceBoundary locates sentence ends using the neurosnap punkt
// tokenizer with its embedded English training data.
type sentenceBoundary struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

func newSentenceBoundary() (*sentenceBoundary, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, err
	}
	return &sentenceBoundary{tokenizer: tokenizer}, nil
}

// lastBoundary cuts before the final (typically truncated) sentence in the
// window, i.e. after the last complete sentence. Returns -1 when the window
// holds at most one sentence.
func (b *sentenceBoundary) lastBoundary(window []rune) int {
	text := string(window)
	sents := b.tokenizer.Tokenize(text)
	if len(sents) < 2 {
		return -1
	}

	start := sents[len(sents)-1].Start
	if start <= 0 || start >= len(text) {
		return -1
	}
	// Tokenizer offsets are byte positions; the splitter works in runes.
	return utf8.RuneCountInString(text[:start])
}
