package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, "groq", cfg.Provider.Type)
	assert.Equal(t, 2050, cfg.Chunking.Size)
	assert.Equal(t, 150, cfg.Chunking.Overlap)
	assert.Equal(t, 6, cfg.Retrieval.TopK)
	assert.Equal(t, "legal-chunks", cfg.Index.Collection)
}

func TestLoadOverridesAndFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
provider:
  type: openai
  openai:
    model: gpt-4o
chunking:
  size: 1000
  overlap: 80
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Provider.Type)
	assert.Equal(t, "gpt-4o", cfg.Provider.OpenAI.Model)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 80, cfg.Chunking.Overlap)
	// Unset sections keep defaults.
	assert.Equal(t, "OPENAI_API_KEY", cfg.Provider.OpenAI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 6, cfg.Retrieval.TopK)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, "provider:\n  type: ollama\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown provider type")
}

func TestLoadRejectsOverlapLargerThanSize(t *testing.T) {
	path := writeConfig(t, "chunking:\n  size: 100\n  overlap: 100\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "overlap")
}

func TestLoadRejectsWatcherWithoutDir(t *testing.T) {
	path := writeConfig(t, "watch:\n  enabled: true\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "watch.dir")
}

func TestAPIKeyResolution(t *testing.T) {
	t.Setenv("TEST_GROQ_KEY", "gsk-123")
	path := writeConfig(t, `
provider:
  type: groq
  groq:
    api_key_env: TEST_GROQ_KEY
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gsk-123", cfg.ProviderAPIKey())
}
