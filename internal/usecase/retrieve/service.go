package retrieve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/thebeast/llamarouter/internal/domain"
	"github.com/thebeast/llamarouter/internal/domain/filter"
	"github.com/thebeast/llamarouter/internal/domain/retrieval"
	logpkg "github.com/thebeast/llamarouter/internal/logger"
	"github.com/thebeast/llamarouter/internal/metrics"
	"github.com/thebeast/llamarouter/internal/resilience"
)

// Service calls the retrieval dependency with bounded retry on transient failures.
type Service struct {
	index   Index
	policy  resilience.Policy
	breaker *resilience.Breaker
	limiter Limiter
	logger  *zap.Logger
}

// New creates a retriever. policy.Retryable decides which failures are transient.
func New(index Index, policy resilience.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, policy: policy.Normalize(), logger: logger}
}

// WithBreaker routes every attempt through a circuit breaker.
func (s *Service) WithBreaker(b *resilience.Breaker) *Service {
	s.breaker = b
	return s
}

// WithLimiter throttles attempts. A nil limiter is ignored.
func (s *Service) WithLimiter(l Limiter) *Service {
	s.limiter = l
	return s
}

// Retrieve returns the passages for query from the named target, in index order.
// An empty result is a success. Failures that survive the retry policy are returned as
// domain.ErrDependency; if ctx ends first, ctx.Err() is returned unwrapped.
func (s *Service) Retrieve(
	ctx context.Context, targetName, query string,
	expr filter.Expression, tuning retrieval.Tuning,
) ([]retrieval.Passage, error) {
	log := logpkg.FromContext(ctx, s.logger).With(zap.String("target", targetName))

	policy := s.policy
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		log.Warn("retry_attempt",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	var passages []retrieval.Passage
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		out, err := s.attempt(ctx, targetName, query, expr, tuning)
		s.observe(ctx, targetName, err)
		if err != nil {
			log.Debug("retrieval attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		passages = out
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Error("retrieval failed", zap.Error(err))
		return nil, domain.NewDependencyError(err)
	}

	metrics.RetrievalPassages.WithLabelValues(targetName).Observe(float64(len(passages)))
	log.Debug("retrieval completed",
		zap.Int("passages", len(passages)),
		zap.Bool("filtered", !expr.IsEmpty()),
	)
	if passages == nil {
		passages = []retrieval.Passage{}
	}
	return passages, nil
}

func (s *Service) attempt(
	ctx context.Context, targetName, query string,
	expr filter.Expression, tuning retrieval.Tuning,
) ([]retrieval.Passage, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}
	}

	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.WithLabelValues(targetName).Observe(time.Since(start).Seconds())
	}()

	if s.breaker == nil {
		return s.index.Retrieve(ctx, targetName, query, expr, tuning)
	}

	var out []retrieval.Passage
	err := s.breaker.Execute(func() error {
		var err error
		out, err = s.index.Retrieve(ctx, targetName, query, expr, tuning)
		return err
	})
	return out, err
}

func (s *Service) observe(ctx context.Context, targetName string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		outcome = "cancelled"
	case s.policy.Retryable(err):
		outcome = "transient"
	default:
		outcome = "fatal"
	}
	metrics.RetrievalAttemptsTotal.WithLabelValues(targetName, outcome).Inc()
}
