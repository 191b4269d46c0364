package query

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/thebeast/llamarouter/internal/domain"
	"github.com/thebeast/llamarouter/internal/domain/answer"
	"github.com/thebeast/llamarouter/internal/domain/filter"
	"github.com/thebeast/llamarouter/internal/domain/retrieval"
	"github.com/thebeast/llamarouter/internal/domain/target"
	logpkg "github.com/thebeast/llamarouter/internal/logger"
	"github.com/thebeast/llamarouter/internal/metrics"
	"github.com/thebeast/llamarouter/internal/usecase/route"
)

// Request is one caller query.
type Request struct {
	Query string
	// Filters is the decoded filter payload: {"filters": [...], "condition": "..."}.
	Filters any
	Tuning  retrieval.Tuning
}

// Result is a successful answer. SelectedIndex is empty when routing is not used.
type Result struct {
	Text          string
	Citations     []answer.Citation
	SelectedIndex string
}

// Options tunes orchestration behavior.
type Options struct {
	// RequiredFilterKeys must each appear in the normalized filter.
	RequiredFilterKeys []string
	// EmptyResultMessage replaces the empty text when nothing is retrieved.
	// A %s verb is substituted with the query.
	EmptyResultMessage string
	// TargetTuning holds per-target defaults, overridden field-by-field by the request.
	TargetTuning map[string]retrieval.Tuning
}

// Service runs a query through validation, filtering, retrieval and assembly.
type Service struct {
	normalizer *filter.Normalizer
	targets    target.Set
	retriever  Retriever
	router     Router
	opts       Options
	logger     *zap.Logger
}

// New creates an orchestrator. With a single target the router is bypassed and may be nil;
// with more than one target every query is routed.
func New(
	normalizer *filter.Normalizer, targets target.Set,
	retriever Retriever, router Router,
	opts Options, logger *zap.Logger,
) (*Service, error) {
	if targets.Len() == 0 {
		return nil, errors.New("at least one target is required")
	}
	if targets.Len() > 1 && router == nil {
		return nil, errors.New("router is required with more than one target")
	}
	if targets.Len() == 1 && retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if normalizer == nil {
		normalizer = filter.NewNormalizer(filter.ExpansionEncoded)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		normalizer: normalizer,
		targets:    targets,
		retriever:  retriever,
		router:     router,
		opts:       opts,
		logger:     logger,
	}, nil
}

// Routed reports whether queries go through target selection.
func (s *Service) Routed() bool { return s.targets.Len() > 1 }

// Targets returns the configured targets.
func (s *Service) Targets() target.Set { return s.targets }

// Query answers req. Errors are domain.RequestError values carrying the caller-visible
// message, except cancellation which returns ctx.Err() unwrapped.
func (s *Service) Query(ctx context.Context, req Request) (Result, error) {
	log := logpkg.FromContext(ctx, s.logger)
	state := StateValidating
	fail := func(err error) (Result, error) {
		log.Debug("query_state",
			zap.String("state", string(StateError)),
			zap.String("failed_in", string(state)),
			zap.Error(err),
		)
		metrics.QueriesTotal.WithLabelValues(outcomeOf(err)).Inc()
		return Result{}, err
	}

	if req.Query == "" {
		return fail(domain.NewInputError(domain.MsgMissingQuery))
	}

	state = StateFiltering
	expr := s.normalizer.Normalize(req.Filters)
	for _, key := range s.opts.RequiredFilterKeys {
		if !expr.HasField(key) {
			return fail(domain.NewInputError(domain.PrefixMissingFilter + key))
		}
	}
	log.Debug("query_state",
		zap.String("state", string(state)),
		zap.Int("predicates", len(expr.Predicates())),
		zap.String("condition", string(expr.Condition())),
	)

	var (
		passages []retrieval.Passage
		selected string
		err      error
	)
	if s.Routed() {
		state = StateRouting
		var sel route.Selection
		sel, err = s.router.Retrieve(ctx, req.Query, expr, func(name string) retrieval.Tuning {
			return s.tuningFor(name, req.Tuning)
		})
		passages, selected = sel.Passages, sel.Target
	} else {
		state = StateRetrieving
		only := s.targets.All()[0].Name
		passages, err = s.retriever.Retrieve(ctx, only, req.Query, expr, s.tuningFor(only, req.Tuning))
	}
	if err != nil {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		return fail(err)
	}

	state = StateAssembling
	ans := answer.Assemble(passages)
	outcome := "success"
	if len(passages) == 0 {
		outcome = "empty"
		ans.Text = s.emptyText(req.Query)
	}

	log.Debug("query_state",
		zap.String("state", string(StateDone)),
		zap.Int("passages", len(passages)),
		zap.Int("citations", len(ans.Citations)),
		zap.String("selected_index", selected),
	)
	metrics.QueriesTotal.WithLabelValues(outcome).Inc()

	return Result{Text: ans.Text, Citations: ans.Citations, SelectedIndex: selected}, nil
}

func (s *Service) tuningFor(targetName string, override retrieval.Tuning) retrieval.Tuning {
	return s.opts.TargetTuning[targetName].Merge(override)
}

func (s *Service) emptyText(query string) string {
	return strings.ReplaceAll(s.opts.EmptyResultMessage, "%s", query)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, domain.ErrInvalidInput):
		return "input_error"
	case errors.Is(err, domain.ErrRouting):
		return "routing_error"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrDependency):
		return "dependency_error"
	default:
		return "error"
	}
}
