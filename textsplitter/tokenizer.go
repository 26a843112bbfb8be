package textsplitter

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts model tokens in text. It is used wherever a provider
// context limit must be respected (answer context budget, summarization
// threshold); chunking itself is character-based.
type Tokenizer interface {
	Count(text string) int
}

// SimpleTokenizer approximates token counts by whitespace-separated words.
type SimpleTokenizer struct{}

func NewSimpleTokenizer() *SimpleTokenizer {
	return &SimpleTokenizer{}
}

func (t *SimpleTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// TikTokenTokenizer counts tokens using OpenAI's tiktoken BPE.
type TikTokenTokenizer struct {
	encoding *tiktoken.Tiktoken
}

// NewTikTokenTokenizer creates a tokenizer for the given model. Pass an
// empty model to default to gpt-3.5-turbo's encoding.
func NewTikTokenTokenizer(model string) (*TikTokenTokenizer, error) {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding for model %s: %w", model, err)
	}
	return &TikTokenTokenizer{encoding: tkm}, nil
}

func (t *TikTokenTokenizer) Count(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}
