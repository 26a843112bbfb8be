package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aqua777/go-legalrag/schema"
)

const (
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxTokens bounds the length of generated answers.
	DefaultMaxTokens = 1024
)

// OpenAILLM calls an OpenAI-compatible chat completions endpoint.
type OpenAILLM struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *slog.Logger
}

// OpenAIOption configures an OpenAILLM.
type OpenAIOption func(*OpenAILLM)

// WithMaxTokens bounds the completion length.
func WithMaxTokens(n int) OpenAIOption {
	return func(o *OpenAILLM) {
		o.maxTokens = n
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(o *OpenAILLM) {
		o.timeout = d
	}
}

// NewOpenAILLM creates a client. Empty baseURL targets the OpenAI API;
// empty apiKey falls back to OPENAI_API_KEY; empty model defaults to
// gpt-4o-mini.
func NewOpenAILLM(baseURL, model, apiKey string, opts ...OpenAIOption) *OpenAILLM {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	o := &OpenAILLM{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		maxTokens: DefaultMaxTokens,
		timeout:   DefaultTimeout,
		logger:    slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt string) (string, error) {
	return o.Chat(ctx, []ChatMessage{NewUserMessage(prompt)})
}

func (o *OpenAILLM) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:     o.model,
			MaxTokens: o.maxTokens,
			Messages:  convertMessages(messages),
		},
	)
	if err != nil {
		o.logger.Error("Chat failed", "model", o.model, "error", err)
		return "", classifyError("completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", schema.NewTransientError("completion",
			fmt.Errorf("%w: provider returned no choices", ErrProviderUnavailable))
	}

	return resp.Choices[0].Message.Content, nil
}

func convertMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// classifyError maps provider errors onto the retryable/permanent split.
func classifyError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return schema.NewTransientError(op, fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
		}
		if apiErr.HTTPStatusCode >= 400 {
			return schema.NewInputError(op, fmt.Errorf("%w: %v", ErrRequestRejected, err))
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return schema.NewTransientError(op, fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	}

	return schema.NewTransientError(op, fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
}
