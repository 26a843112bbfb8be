package embedding

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/go-legalrag/schema"
)

func TestMockEmbedding_Deterministic(t *testing.T) {
	m := NewMockEmbedding(8)

	a, err := m.GetTextEmbedding(context.Background(), "habeas corpus")
	require.NoError(t, err)
	b, err := m.GetTextEmbedding(context.Background(), "habeas corpus")
	require.NoError(t, err)
	c, err := m.GetQueryEmbedding(context.Background(), "res judicata")
	require.NoError(t, err)

	assert.Len(t, a, 8)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, []string{"habeas corpus", "habeas corpus", "res judicata"}, m.Calls)
}

func TestCosineSimilarity(t *testing.T) {
	same, err := CosineSimilarity([]float32{1, 0, 0}, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same, 1e-9)

	orth, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, orth, 1e-9)

	_, err = CosineSimilarity([]float32{1, 0}, []float32{1})
	assert.Error(t, err)

	_, err = CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	assert.Error(t, err)
}

func TestClassifyError(t *testing.T) {
	rateLimited := classifyError("embedding", &openai.APIError{HTTPStatusCode: 429})
	assert.True(t, schema.IsTransient(rateLimited))
	assert.ErrorIs(t, rateLimited, ErrEmbeddingUnavailable)

	serverErr := classifyError("embedding", &openai.APIError{HTTPStatusCode: 503})
	assert.True(t, schema.IsTransient(serverErr))

	tooLong := classifyError("embedding", &openai.APIError{HTTPStatusCode: 400})
	assert.True(t, schema.IsInput(tooLong))
	assert.ErrorIs(t, tooLong, ErrEmbeddingRejected)

	timeout := classifyError("embedding", context.DeadlineExceeded)
	assert.True(t, schema.IsTransient(timeout))
}
