package route

import (
	"context"

	"github.com/thebeast/llamarouter/internal/domain/filter"
	"github.com/thebeast/llamarouter/internal/domain/retrieval"
	"github.com/thebeast/llamarouter/internal/domain/target"
)

// Selector picks one target name for a query from the described candidates.
type Selector interface {
	Select(ctx context.Context, query string, candidates []target.Target) (string, error)
}

// Retriever fetches passages from a single named target.
type Retriever interface {
	Retrieve(
		ctx context.Context, targetName, query string,
		expr filter.Expression, tuning retrieval.Tuning,
	) ([]retrieval.Passage, error)
}
