package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/go-legalrag/llm"
	"github.com/aqua777/go-legalrag/schema"
)

func TestLLMRouterGeneral(t *testing.T) {
	mock := llm.NewMockLLM(`{"datasource": "general"}`)
	r := NewLLMRouter(mock)

	decision, err := r.Route(context.Background(), "hello there", "criminal")
	require.NoError(t, err)
	assert.Equal(t, schema.RouteGeneral, decision.Route)
	assert.Equal(t, "criminal", decision.CaseCategory)
}

func TestLLMRouterCasebased(t *testing.T) {
	mock := llm.NewMockLLM(`{"datasource": "casebased"}`)
	r := NewLLMRouter(mock)

	decision, err := r.Route(context.Background(), "what did the court hold?", "civil")
	require.NoError(t, err)
	assert.Equal(t, schema.RouteGrounded, decision.Route)
	assert.Equal(t, "civil", decision.CaseCategory)
}

func TestLLMRouterToleratesFencesAndProse(t *testing.T) {
	mock := llm.NewMockLLM("Sure! Here is the classification:\n```json\n{\"datasource\": \"GENERAL\"}\n```")
	r := NewLLMRouter(mock)

	decision, err := r.Route(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, schema.RouteGeneral, decision.Route)
}

func TestLLMRouterFailsClosed(t *testing.T) {
	cases := map[string]llm.LLM{
		"model error":        llm.NewMockLLMWithError(errors.New("boom")),
		"no JSON":            llm.NewMockLLM("I think this is casebased."),
		"unknown datasource": llm.NewMockLLM(`{"datasource": "weather"}`),
		"malformed JSON":     llm.NewMockLLM(`{"datasource": `),
	}

	for name, mock := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewLLMRouter(mock)
			decision, err := r.Route(context.Background(), "what is tort law?", "civil")
			require.NoError(t, err)
			assert.Equal(t, schema.RouteGrounded, decision.Route)
			assert.Equal(t, "civil", decision.CaseCategory)
		})
	}
}

func TestKeywordRouter(t *testing.T) {
	r := NewKeywordRouter()
	ctx := context.Background()

	decision, err := r.Route(ctx, "Hello!", "")
	require.NoError(t, err)
	assert.Equal(t, schema.RouteGeneral, decision.Route)

	decision, err = r.Route(ctx, "good morning", "")
	require.NoError(t, err)
	assert.Equal(t, schema.RouteGeneral, decision.Route)

	decision, err = r.Route(ctx, "hello, what does the contract say about termination?", "civil")
	require.NoError(t, err)
	assert.Equal(t, schema.RouteGrounded, decision.Route)
	assert.Equal(t, "civil", decision.CaseCategory)
}
