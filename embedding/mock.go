package embedding

import (
	"context"
	"hash/fnv"
	"sync"
)

// MockEmbedding is a deterministic EmbeddingModel for tests. It can be
// configured with a fixed error, a lookup table, or left alone to derive a
// stable pseudo-vector from the input text.
type MockEmbedding struct {
	// Dim is the dimensionality of produced vectors.
	Dim int
	// Err is returned from every call when set.
	Err error
	// Vectors maps exact input text to a canned vector, overriding the
	// derived one.
	Vectors map[string][]float32
	// Calls records every embedded input in order.
	Calls []string

	mu sync.Mutex
}

// NewMockEmbedding creates a MockEmbedding with the given dimensionality.
func NewMockEmbedding(dim int) *MockEmbedding {
	return &MockEmbedding{Dim: dim, Vectors: make(map[string][]float32)}
}

func (m *MockEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float32, error) {
	return m.embed(text)
}

func (m *MockEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return m.embed(query)
}

func (m *MockEmbedding) embed(text string) ([]float32, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, text)
	err := m.Err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}

	// Stable pseudo-embedding: seed per-component FNV hashes of the text.
	vec := make([]float32, m.Dim)
	for i := range vec {
		h := fnv.New32a()
		h.Write([]byte{byte(i)})
		h.Write([]byte(text))
		vec[i] = float32(h.Sum32()%1000)/1000 + 0.001
	}
	return vec, nil
}
