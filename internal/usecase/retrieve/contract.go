package retrieve

import (
	"context"

	"github.com/thebeast/llamarouter/internal/domain/filter"
	"github.com/thebeast/llamarouter/internal/domain/retrieval"
)

// Index is the remote retrieval dependency. An empty expression means no filter.
type Index interface {
	Retrieve(
		ctx context.Context, targetName, query string,
		expr filter.Expression, tuning retrieval.Tuning,
	) ([]retrieval.Passage, error)
}

// Limiter throttles outbound calls (satisfied by *rate.Limiter).
type Limiter interface {
	Wait(ctx context.Context) error
}
