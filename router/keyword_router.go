package router

import (
	"context"
	"strings"

	"github.com/aqua777/go-legalrag/schema"
)

// greetingPhrases route to the general path when they make up the whole
// question.
var greetingPhrases = []string{
	"hi", "hello", "hey", "good morning", "good afternoon", "good evening",
	"how are you", "who are you", "what can you do", "help", "thanks",
	"thank you",
}

// KeywordRouter routes by pattern matching, with no model call. It exists
// for deployments without a routing model and as the fallback router in
// tests. Anything that is not plainly a greeting is grounded.
type KeywordRouter struct{}

// NewKeywordRouter creates a new KeywordRouter.
func NewKeywordRouter() *KeywordRouter {
	return &KeywordRouter{}
}

func (r *KeywordRouter) Route(ctx context.Context, question, caseCategory string) (schema.RouteDecision, error) {
	decision := schema.RouteDecision{Route: schema.RouteGrounded, CaseCategory: caseCategory}

	normalized := strings.ToLower(strings.TrimSpace(question))
	normalized = strings.TrimRight(normalized, "!?. ")
	for _, phrase := range greetingPhrases {
		if normalized == phrase {
			decision.Route = schema.RouteGeneral
			return decision, nil
		}
	}
	return decision, nil
}

var _ Router = (*KeywordRouter)(nil)
