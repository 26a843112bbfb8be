// Package composer turns retrieval results and a question into a final
// answer. Grounded answers cite only the supplied context; general answers
// skip retrieval entirely.
package composer

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

// ErrGenerationUnavailable is returned when the answer cannot be generated
// because the language model is unreachable.
var ErrGenerationUnavailable = errors.New("answer generation unavailable")

const (
	// DefaultContextBudgetTokens bounds how much retrieved context goes
	// into the prompt.
	DefaultContextBudgetTokens = 3000

	// NoContextAnswer is returned verbatim when a grounded question finds
	// nothing relevant in the corpus.
	NoContextAnswer = "I could not find anything relevant to your question in the uploaded documents. Please try rephrasing the question or upload the documents it concerns."

	generalSystemPrompt = "You are a helpful legal assistant. Answer briefly and note that you can answer questions about uploaded legal documents."

	groundedPromptTmpl = `You are a legal assistant. Answer the question using ONLY the context below. If the context does not contain the answer, say so plainly. Do not invent citations.

Context:
---------------------
%s
---------------------

Question: %s

Answer:`
)

// Composer generates answers from routed questions.
type Composer struct {
	llm           llm.LLM
	tokenizer     textsplitter.Tokenizer
	contextBudget int
	logger        *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithTokenizer overrides the token counter used for context budgeting.
func WithTokenizer(t textsplitter.Tokenizer) Option {
	return func(c *Composer) {
		c.tokenizer = t
	}
}

// WithContextBudget sets the retrieved-context token budget.
func WithContextBudget(n int) Option {
	return func(c *Composer) {
		c.contextBudget = n
	}
}

// NewComposer creates a Composer on top of the given LLM.
func NewComposer(model llm.LLM, opts ...Option) *Composer {
	c := &Composer{
		llm:           model,
		tokenizer:     textsplitter.NewSimpleTokenizer(),
		contextBudget: DefaultContextBudgetTokens,
		logger:        slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose produces the final answer. The results must already be ordered
// best first; lower-ranked results are dropped when the context budget is
// exceeded, and UsedContext reports exactly what went into the prompt.
func (c *Composer) Compose(ctx context.Context, question string, decision schema.RouteDecision, results []schema.RetrievalResult) (schema.Answer, error) {
	if decision.Route == schema.RouteGeneral {
		return c.composeGeneral(ctx, question)
	}
	return c.composeGrounded(ctx, question, results)
}

func (c *Composer) composeGeneral(ctx context.Context, question string) (schema.Answer, error) {
	text, err := c.llm.Chat(ctx, []llm.ChatMessage{
		llm.NewSystemMessage(generalSystemPrompt),
		llm.NewUserMessage(question),
	})
	if err != nil {
		return schema.Answer{}, c.generationError(err)
	}
	return schema.Answer{Text: strings.TrimSpace(text)}, nil
}

func (c *Composer) composeGrounded(ctx context.Context, question string, results []schema.RetrievalResult) (schema.Answer, error) {
	used := c.fitBudget(results)
	if len(used) == 0 {
		return schema.Answer{Text: NoContextAnswer, UsedContext: []schema.RetrievalResult{}}, nil
	}

	sections := make([]string, len(used))
	for i, r := range used {
		sections[i] = r.Snippet
	}
	contextText := strings.Join(sections, "\n\n")

	text, err := c.llm.Complete(ctx, fmt.Sprintf(groundedPromptTmpl, contextText, question))
	if err != nil {
		return schema.Answer{}, c.generationError(err)
	}
	return schema.Answer{Text: strings.TrimSpace(text), UsedContext: used}, nil
}

// fitBudget keeps the best results whose combined snippets fit the token
// budget. The first result is always kept so a single oversized chunk does
// not starve the answer.
func (c *Composer) fitBudget(results []schema.RetrievalResult) []schema.RetrievalResult {
	used := make([]schema.RetrievalResult, 0, len(results))
	total := 0
	for _, r := range results {
		tokens := c.tokenizer.Count(r.Snippet)
		if len(used) > 0 && total+tokens > c.contextBudget {
			c.logger.Debug("context budget reached",
				"kept", len(used), "dropped", len(results)-len(used))
			break
		}
		used = append(used, r)
		total += tokens
	}
	return used
}

func (c *Composer) generationError(err error) error {
	if schema.IsInput(err) {
		return err
	}
	return schema.NewTransientError("compose",
		fmt.Errorf("%w: %v", ErrGenerationUnavailable, err))
}
