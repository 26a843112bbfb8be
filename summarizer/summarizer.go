// Package summarizer produces concise document summaries for retrieval
// metadata. Long documents are summarized map-reduce style: each section is
// summarized on its own, then the partial summaries are merged.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aqua777/go-legalrag/llm"
	"github.com/aqua777/go-legalrag/schema"
	"github.com/aqua777/go-legalrag/textsplitter"
)

// ErrSummarizationUnavailable is returned when the summary cannot be
// produced because the language model is unreachable.
var ErrSummarizationUnavailable = errors.New("summarization unavailable")

const (
	// DefaultMaxInputTokens bounds how much text goes into a single
	// summarization call.
	DefaultMaxInputTokens = 6000
	// DefaultMaxCollapsePasses bounds the reduce loop for pathological
	// inputs.
	DefaultMaxCollapsePasses = 3

	sectionPrompt = `You are a legal assistant. Summarize the following section of a legal document in 3-5 sentences. Preserve parties, dates, claims, and holdings.

Section:
%s

Summary:`

	mergePrompt = `You are a legal assistant. The following are summaries of consecutive sections of one legal document. Merge them into a single summary of at most one paragraph. Preserve parties, dates, claims, and holdings.

Section summaries:
%s

Summary:`
)

// Summarizer turns document text into a single-paragraph summary.
type Summarizer struct {
	llm               llm.LLM
	tokenizer         textsplitter.Tokenizer
	maxInputTokens    int
	maxCollapsePasses int
	logger            *slog.Logger
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithTokenizer overrides the token counter used for budgeting.
func WithTokenizer(t textsplitter.Tokenizer) Option {
	return func(s *Summarizer) {
		s.tokenizer = t
	}
}

// WithMaxInputTokens sets the per-call input budget.
func WithMaxInputTokens(n int) Option {
	return func(s *Summarizer) {
		s.maxInputTokens = n
	}
}

// NewSummarizer creates a Summarizer on top of the given LLM.
func NewSummarizer(model llm.LLM, opts ...Option) *Summarizer {
	s := &Summarizer{
		llm:               model,
		tokenizer:         textsplitter.NewSimpleTokenizer(),
		maxInputTokens:    DefaultMaxInputTokens,
		maxCollapsePasses: DefaultMaxCollapsePasses,
		logger:            slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize produces a summary of the document text. Empty input yields an
// empty summary without calling the model.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	if s.tokenizer.Count(text) <= s.maxInputTokens {
		return s.complete(ctx, fmt.Sprintf(sectionPrompt, text))
	}

	partials, err := s.mapSections(ctx, text)
	if err != nil {
		return "", err
	}
	return s.reduce(ctx, partials)
}

// mapSections splits the document and summarizes each section.
func (s *Summarizer) mapSections(ctx context.Context, text string) ([]string, error) {
	sections, err := s.split(text)
	if err != nil {
		return nil, err
	}
	s.logger.Info("summarizing sections", "count", len(sections))

	partials := make([]string, 0, len(sections))
	for _, section := range sections {
		summary, err := s.complete(ctx, fmt.Sprintf(sectionPrompt, section))
		if err != nil {
			return nil, err
		}
		partials = append(partials, summary)
	}
	return partials, nil
}

// reduce merges partial summaries, collapsing in rounds until the combined
// text fits the input budget.
func (s *Summarizer) reduce(ctx context.Context, partials []string) (string, error) {
	for pass := 0; len(partials) > 1; pass++ {
		combined := strings.Join(partials, "\n\n")
		if s.tokenizer.Count(combined) <= s.maxInputTokens || pass >= s.maxCollapsePasses {
			return s.complete(ctx, fmt.Sprintf(mergePrompt, combined))
		}

		sections, err := s.split(combined)
		if err != nil {
			return "", err
		}
		next := make([]string, 0, len(sections))
		for _, section := range sections {
			merged, err := s.complete(ctx, fmt.Sprintf(mergePrompt, section))
			if err != nil {
				return "", err
			}
			next = append(next, merged)
		}
		partials = next
	}
	return partials[0], nil
}

// split cuts text into sections that fit the input budget. The splitter
// works in characters, so the budget is scaled by a rough chars-per-token
// factor.
func (s *Summarizer) split(text string) ([]string, error) {
	const charsPerToken = 4
	splitter, err := textsplitter.NewSplitter(s.maxInputTokens*charsPerToken, 0)
	if err != nil {
		return nil, schema.NewInputError("summarize", err)
	}
	return splitter.SplitText(text), nil
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	out, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		if schema.IsInput(err) {
			return "", err
		}
		return "", schema.NewTransientError("summarize",
			fmt.Errorf("%w: %v", ErrSummarizationUnavailable, err))
	}
	return strings.TrimSpace(out), nil
}
