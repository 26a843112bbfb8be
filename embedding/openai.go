package embedding

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

// DefaultTimeout bounds a single embedding call.
const DefaultTimeout = 30 * time.Second

// OpenAIEmbedding calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedding struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
	logger  *slog.Logger
}

// OpenAIOption configures an OpenAIEmbedding.
type OpenAIOption func(*OpenAIEmbedding)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(o *OpenAIEmbedding) {
		o.timeout = d
	}
}

// NewOpenAIEmbedding creates a client for the given endpoint and model.
// Empty baseURL targets the OpenAI API; empty apiKey falls back to
// OPENAI_API_KEY; empty model defaults to text-embedding-3-small.
func NewOpenAIEmbedding(baseURL, apiKey, modelName string, opts ...OpenAIOption) *OpenAIEmbedding {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	model := openai.SmallEmbedding3
	if modelName != "" {
		model = openai.EmbeddingModel(modelName)
	}

	e := &OpenAIEmbedding{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewOpenAIEmbeddingWithClient wraps an existing client.
func NewOpenAIEmbeddingWithClient(client *openai.Client, modelName string) *OpenAIEmbedding {
	model := openai.SmallEmbedding3
	if modelName != "" {
		model = openai.EmbeddingModel(modelName)
	}
	return &OpenAIEmbedding{
		client:  client,
		model:   model,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
}

func (o *OpenAIEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float32, error) {
	return o.getEmbedding(ctx, text, "text")
}

func (o *OpenAIEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return o.getEmbedding(ctx, query, "query")
}

func (o *OpenAIEmbedding) getEmbedding(ctx context.Context, input string, typeLabel string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateEmbeddings(
		ctx,
		openai.EmbeddingRequest{
			Input: []string{input},
			Model: o.model,
		},
	)
	if err != nil {
		o.logger.Error("GetEmbedding failed", "type", typeLabel, "model", o.model, "error", err)
		return nil, classifyError("embedding", err)
	}

	if len(resp.Data) == 0 {
		return nil, schema.NewTransientError("embedding",
			fmt.Errorf("%w: provider returned no embeddings", ErrEmbeddingUnavailable))
	}

	return resp.Data[0].Embedding, nil
}

// classifyError maps provider errors onto the retryable/permanent split:
// 429, 5xx, timeouts and connectivity failures are unavailability; other
// HTTP 4xx responses mean the input itself was rejected.
func classifyError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return schema.NewTransientError(op, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err))
		}
		if apiErr.HTTPStatusCode >= 400 {
			return schema.NewInputError(op, fmt.Errorf("%w: %v", ErrEmbeddingRejected, err))
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= 400 && reqErr.HTTPStatusCode < 500 && reqErr.HTTPStatusCode != 429 {
		return schema.NewInputError(op, fmt.Errorf("%w: %v", ErrEmbeddingRejected, err))
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return schema.NewTransientError(op, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err))
	}

	return schema.NewTransientError(op, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err))
}
