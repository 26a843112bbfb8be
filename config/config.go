// Package config loads the application configuration from YAML with
// environment overrides for secrets. A .env file in the working directory is
// honored so local development does not need exported variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ProviderConfig selects and configures the language model provider.
type ProviderConfig struct {
	// Type is one of "openai", "groq", "bedrock".
	Type    string        `yaml:"type"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Groq    GroqConfig    `yaml:"groq"`
	Bedrock BedrockConfig `yaml:"bedrock"`
}

// OpenAIConfig configures the OpenAI chat provider.
type OpenAIConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// GroqConfig configures the Groq chat provider.
type GroqConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// BedrockConfig configures the AWS Bedrock chat provider.
type BedrockConfig struct {
	Region string `yaml:"region"`
	Model  string `yaml:"model"`
}

// EmbeddingConfig configures the embedding provider (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// IndexConfig configures the vector index.
type IndexConfig struct {
	// Path is the persistence directory; empty keeps the index in memory.
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// ChunkingConfig configures document splitting.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig configures question answering.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// IngestConfig bounds ingestion throughput.
type IngestConfig struct {
	Concurrency    int     `yaml:"concurrency"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	Burst          int     `yaml:"burst"`
	SummaryEnabled bool    `yaml:"summary_enabled"`
}

// WatchConfig configures the drop-directory watcher.
type WatchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Metadata  struct {
		Path string `yaml:"path"`
	} `yaml:"metadata"`
	Storage struct {
		Dir       string `yaml:"dir"`
		URLPrefix string `yaml:"url_prefix"`
	} `yaml:"storage"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
}

// Load reads the config file at path. A missing file yields defaults, so a
// bare binary still starts. Environment variables are loaded from .env
// first when present.
func Load(path string) (*Config, error) {
	// Best effort: absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProviderAPIKey resolves the chat provider's API key from the configured
// environment variable.
func (c *Config) ProviderAPIKey() string {
	switch c.Provider.Type {
	case "groq":
		return os.Getenv(c.Provider.Groq.APIKeyEnv)
	case "openai":
		return os.Getenv(c.Provider.OpenAI.APIKeyEnv)
	default:
		return ""
	}
}

// EmbeddingAPIKey resolves the embedding provider's API key.
func (c *Config) EmbeddingAPIKey() string {
	return os.Getenv(c.Embedding.APIKeyEnv)
}

// Addr returns the server's listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func defaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			AllowedOrigins: []string{"*"},
		},
		Provider: ProviderConfig{
			Type:    "groq",
			OpenAI:  OpenAIConfig{APIKeyEnv: "OPENAI_API_KEY"},
			Groq:    GroqConfig{APIKeyEnv: "GROQ_API_KEY"},
			Bedrock: BedrockConfig{},
		},
		Embedding: EmbeddingConfig{
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     "text-embedding-3-small",
		},
		Index: IndexConfig{
			Path:       "data/index",
			Collection: "legal-chunks",
		},
		Chunking: ChunkingConfig{
			Size:    2050,
			Overlap: 150,
		},
		Retrieval: RetrievalConfig{TopK: 6},
		Ingest: IngestConfig{
			Concurrency:    4,
			RatePerSecond:  5,
			Burst:          10,
			SummaryEnabled: true,
		},
	}
	cfg.Metadata.Path = "data/metadata.db"
	cfg.Storage.Dir = "data/files"
	cfg.Storage.URLPrefix = "/files"
	return cfg
}

func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = def.Server.AllowedOrigins
	}
	if cfg.Provider.Type == "" {
		cfg.Provider.Type = def.Provider.Type
	}
	if cfg.Provider.OpenAI.APIKeyEnv == "" {
		cfg.Provider.OpenAI.APIKeyEnv = def.Provider.OpenAI.APIKeyEnv
	}
	if cfg.Provider.Groq.APIKeyEnv == "" {
		cfg.Provider.Groq.APIKeyEnv = def.Provider.Groq.APIKeyEnv
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = def.Embedding.APIKeyEnv
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = def.Index.Collection
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = def.Chunking.Size
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = def.Chunking.Overlap
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = def.Ingest.Concurrency
	}
	if cfg.Ingest.RatePerSecond == 0 {
		cfg.Ingest.RatePerSecond = def.Ingest.RatePerSecond
	}
	if cfg.Ingest.Burst == 0 {
		cfg.Ingest.Burst = def.Ingest.Burst
	}
	if cfg.Metadata.Path == "" {
		cfg.Metadata.Path = def.Metadata.Path
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = def.Storage.Dir
	}
	if cfg.Storage.URLPrefix == "" {
		cfg.Storage.URLPrefix = def.Storage.URLPrefix
	}
}

func validate(cfg *Config) error {
	switch cfg.Provider.Type {
	case "openai", "groq", "bedrock":
	default:
		return fmt.Errorf("unknown provider type %q", cfg.Provider.Type)
	}
	if cfg.Chunking.Overlap >= cfg.Chunking.Size {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d",
			cfg.Chunking.Overlap, cfg.Chunking.Size)
	}
	if cfg.Watch.Enabled && cfg.Watch.Dir == "" {
		return fmt.Errorf("watch.dir is required when the watcher is enabled")
	}
	return nil
}
