package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aqua777/go-legalrag/blobstore"
	"github.com/aqua777/go-legalrag/composer"
	"github.com/aqua777/go-legalrag/config"
	"github.com/aqua777/go-legalrag/embedding"
	"github.com/aqua777/go-legalrag/llm"
	"github.com/aqua777/go-legalrag/metadata"
	"github.com/aqua777/go-legalrag/pipeline"
	"github.com/aqua777/go-legalrag/router"
	"github.com/aqua777/go-legalrag/summarizer"
	"github.com/aqua777/go-legalrag/textsplitter"
	"github.com/aqua777/go-legalrag/vectorstore"
)

// app bundles everything a command needs, plus the resources to close on
// exit.
type app struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	logger   *slog.Logger

	metadataStore *metadata.SQLiteStore
	blobStore     *blobstore.LocalStore
}

func (a *app) Close() error {
	if a.metadataStore != nil {
		return a.metadataStore.Close()
	}
	return nil
}

// buildApp assembles the pipeline from configuration.
func buildApp(cfg *config.Config) (*app, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	chatModel, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	embedder := embedding.NewOpenAIEmbedding(
		cfg.Embedding.BaseURL, cfg.EmbeddingAPIKey(), cfg.Embedding.Model)

	store, err := vectorstore.NewChromemStore(cfg.Index.Path, cfg.Index.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	metadataStore, err := metadata.NewSQLiteStore(cfg.Metadata.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	blobStore, err := blobstore.NewLocalStore(cfg.Storage.Dir, cfg.Storage.URLPrefix)
	if err != nil {
		metadataStore.Close()
		return nil, fmt.Errorf("failed to open file storage: %w", err)
	}

	splitter, err := textsplitter.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		metadataStore.Close()
		return nil, fmt.Errorf("invalid chunking configuration: %w", err)
	}

	// Token budgets count real model tokens when the BPE tables are
	// available, falling back to word counts offline.
	var tokenizer textsplitter.Tokenizer = textsplitter.NewSimpleTokenizer()
	if tk, err := textsplitter.NewTikTokenTokenizer(""); err == nil {
		tokenizer = tk
	} else {
		logger.Warn("tiktoken unavailable, using word-count budgeting", "error", err)
	}

	opts := []pipeline.Option{
		pipeline.WithSplitter(splitter),
		pipeline.WithMetadataStore(metadataStore),
		pipeline.WithBlobStore(blobStore),
		pipeline.WithTopK(cfg.Retrieval.TopK),
		pipeline.WithConcurrency(cfg.Ingest.Concurrency),
		pipeline.WithRateLimit(cfg.Ingest.RatePerSecond, cfg.Ingest.Burst),
		pipeline.WithLogger(logger),
	}
	if cfg.Ingest.SummaryEnabled {
		opts = append(opts, pipeline.WithSummarizer(
			summarizer.NewSummarizer(chatModel, summarizer.WithTokenizer(tokenizer))))
	}

	p, err := pipeline.NewPipeline(
		embedder, store, router.NewLLMRouter(chatModel),
		composer.NewComposer(chatModel, composer.WithTokenizer(tokenizer)),
		opts...)
	if err != nil {
		metadataStore.Close()
		return nil, err
	}

	return &app{
		cfg:           cfg,
		pipeline:      p,
		logger:        logger,
		metadataStore: metadataStore,
		blobStore:     blobStore,
	}, nil
}

// buildLLM selects the chat provider from configuration.
func buildLLM(cfg *config.Config) (llm.LLM, error) {
	switch cfg.Provider.Type {
	case "openai":
		return llm.NewOpenAILLM(
			cfg.Provider.OpenAI.BaseURL, cfg.Provider.OpenAI.Model, cfg.ProviderAPIKey()), nil
	case "groq":
		return llm.NewGroqLLM(cfg.Provider.Groq.Model, cfg.ProviderAPIKey()), nil
	case "bedrock":
		var opts []llm.BedrockOption
		if cfg.Provider.Bedrock.Model != "" {
			opts = append(opts, llm.WithBedrockModel(cfg.Provider.Bedrock.Model))
		}
		if cfg.Provider.Bedrock.Region != "" {
			os.Setenv("AWS_REGION", cfg.Provider.Bedrock.Region)
		}
		return llm.NewBedrockLLM(opts...)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Provider.Type)
	}
}
