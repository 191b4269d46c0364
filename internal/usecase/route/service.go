package route

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/thebeast/llamarouter/internal/domain"
	"github.com/thebeast/llamarouter/internal/domain/filter"
	"github.com/thebeast/llamarouter/internal/domain/retrieval"
	"github.com/thebeast/llamarouter/internal/domain/target"
	logpkg "github.com/thebeast/llamarouter/internal/logger"
	"github.com/thebeast/llamarouter/internal/metrics"
)

// Selection is the outcome of a routed retrieval.
type Selection struct {
	Target   string
	Passages []retrieval.Passage
}

// TuningFunc returns the tuning to use for a target once it is known.
type TuningFunc func(targetName string) retrieval.Tuning

// Service routes a query to exactly one target and retrieves from it.
type Service struct {
	targets   target.Set
	selector  Selector
	retriever Retriever
	logger    *zap.Logger
}

// New creates a router over a fixed target set.
func New(targets target.Set, selector Selector, retriever Retriever, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{targets: targets, selector: selector, retriever: retriever, logger: logger}
}

// Targets returns the configured candidates in order.
func (s *Service) Targets() target.Set { return s.targets }

// Retrieve selects a target for query and retrieves from it with expr.
// Selection failures are domain.ErrRouting; there is no fallback target.
// Retrieval errors are returned as produced by the retriever.
func (s *Service) Retrieve(
	ctx context.Context, query string, expr filter.Expression, tuning TuningFunc,
) (Selection, error) {
	log := logpkg.FromContext(ctx, s.logger)

	name, err := s.selector.Select(ctx, query, s.targets.All())
	if err != nil {
		if ctx.Err() != nil {
			return Selection{}, ctx.Err()
		}
		metrics.RoutingDecisionsTotal.WithLabelValues("", "error").Inc()
		log.Error("route selection failed", zap.Error(err))
		return Selection{}, domain.NewRoutingError(err)
	}
	if _, ok := s.targets.Lookup(name); !ok {
		metrics.RoutingDecisionsTotal.WithLabelValues("", "unknown").Inc()
		err = fmt.Errorf("%w: %q", domain.ErrUnknownTarget, name)
		log.Error("route selection failed", zap.Error(err))
		return Selection{}, domain.NewRoutingError(err)
	}

	metrics.RoutingDecisionsTotal.WithLabelValues(name, "selected").Inc()
	log.Info("route_selected", zap.String("target", name))

	var t retrieval.Tuning
	if tuning != nil {
		t = tuning(name)
	}
	passages, err := s.retriever.Retrieve(ctx, name, query, expr, t)
	if err != nil {
		return Selection{Target: name}, err
	}
	return Selection{Target: name, Passages: passages}, nil
}
