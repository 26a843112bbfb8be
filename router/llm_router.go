package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aqua777/go-legalrag/llm"
	"github.com/aqua777/go-legalrag/schema"
)

// DefaultRoutePromptTmpl asks the model to classify the question. Only the
// two datasource values are accepted; anything else falls back to grounded.
const DefaultRoutePromptTmpl = `You are an expert at routing a user question to the appropriate data source.

There are two data sources:
- "general": greetings, small talk, and questions about your capabilities that need no document lookup.
- "casebased": any question about legal matters, cases, rulings, contracts, or the contents of uploaded documents.

Classify the question below. When in doubt, choose "casebased".

The output should be ONLY JSON formatted as a JSON instance.

Here is an example:
{
    "datasource": "casebased"
}

Question: '%s'`

// Datasource values the model may return.
const (
	datasourceGeneral   = "general"
	datasourceCasebased = "casebased"
)

// LLMRouter uses a language model to pick the route.
type LLMRouter struct {
	llm            llm.LLM
	promptTemplate string
	logger         *slog.Logger
}

// LLMRouterOption configures an LLMRouter.
type LLMRouterOption func(*LLMRouter)

// WithRoutePrompt sets the prompt template.
func WithRoutePrompt(template string) LLMRouterOption {
	return func(r *LLMRouter) {
		r.promptTemplate = template
	}
}

// NewLLMRouter creates a new LLMRouter.
func NewLLMRouter(llmInstance llm.LLM, opts ...LLMRouterOption) *LLMRouter {
	r := &LLMRouter{
		llm:            llmInstance,
		promptTemplate: DefaultRoutePromptTmpl,
		logger:         slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route classifies the question. Model failures and unparseable output are
// not errors: the decision falls back to the grounded route so retrieval
// still runs.
func (r *LLMRouter) Route(ctx context.Context, question, caseCategory string) (schema.RouteDecision, error) {
	decision := schema.RouteDecision{Route: schema.RouteGrounded, CaseCategory: caseCategory}

	prompt := fmt.Sprintf(r.promptTemplate, question)
	response, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		r.logger.Warn("routing model failed, falling back to grounded route", "error", err)
		return decision, nil
	}

	datasource, err := parseRouteOutput(response)
	if err != nil {
		r.logger.Warn("unparseable routing output, falling back to grounded route",
			"output", response, "error", err)
		return decision, nil
	}

	if datasource == datasourceGeneral {
		decision.Route = schema.RouteGeneral
	}
	return decision, nil
}

type routeAnswer struct {
	Datasource string `json:"datasource"`
}

// parseRouteOutput extracts the datasource from the model output, tolerating
// surrounding prose and markdown code fences.
func parseRouteOutput(output string) (string, error) {
	jsonStr := extractJSON(output)
	if jsonStr == "" {
		return "", fmt.Errorf("no JSON found in output: %s", output)
	}

	var answer routeAnswer
	if err := json.Unmarshal([]byte(jsonStr), &answer); err != nil {
		return "", fmt.Errorf("failed to parse JSON: %w", err)
	}

	datasource := strings.ToLower(strings.TrimSpace(answer.Datasource))
	switch datasource {
	case datasourceGeneral, datasourceCasebased:
		return datasource, nil
	default:
		return "", fmt.Errorf("unknown datasource %q", answer.Datasource)
	}
}

// extractJSON extracts a JSON object from text.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(text, "}")
	if end <= start {
		return ""
	}
	return text[start : end+1]
}

var _ Router = (*LLMRouter)(nil)
