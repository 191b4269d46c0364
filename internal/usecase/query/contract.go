package query

import (
	"context"

	"github.com/thebeast/llamarouter/internal/domain/filter"
	"github.com/thebeast/llamarouter/internal/domain/retrieval"
	"github.com/thebeast/llamarouter/internal/usecase/route"
)

// Retriever fetches passages from one named target with bounded retry.
type Retriever interface {
	Retrieve(
		ctx context.Context, targetName, query string,
		expr filter.Expression, tuning retrieval.Tuning,
	) ([]retrieval.Passage, error)
}

// Router selects a target and retrieves from it.
type Router interface {
	Retrieve(
		ctx context.Context, query string,
		expr filter.Expression, tuning route.TuningFunc,
	) (route.Selection, error)
}
