// Package router decides whether a question needs document retrieval or can
// be answered directly. Routing fails closed: when the decision cannot be
// made, the question is treated as grounded so no answer is produced without
// checking the corpus first.
package router

import (
	"context"

	"github.com/aqua777/go-legalrag/schema"
)

// Router classifies a question into a route. The case category is carried
// through so downstream retrieval can filter by it.
type Router interface {
	Route(ctx context.Context, question, caseCategory string) (schema.RouteDecision, error)
}
