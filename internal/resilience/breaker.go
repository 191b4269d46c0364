package resilience

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	MinRequests     uint32
	FailureRatio    float64
	OpenTimeout     time.Duration
	HalfOpenMaxCall uint32
	// Interval clears closed-state counts so the ratio reflects recent traffic.
	// Zero derives it from OpenTimeout.
	Interval time.Duration
}

// DefaultBreakerConfig returns conservative breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MinRequests:     10,
		FailureRatio:    0.5,
		OpenTimeout:     30 * time.Second,
		HalfOpenMaxCall: 2,
	}
}

func (c BreakerConfig) normalize() BreakerConfig {
	out := c
	def := DefaultBreakerConfig()
	if out.MinRequests == 0 {
		out.MinRequests = def.MinRequests
	}
	if out.FailureRatio <= 0 || out.FailureRatio > 1 {
		out.FailureRatio = def.FailureRatio
	}
	if out.OpenTimeout <= 0 {
		out.OpenTimeout = def.OpenTimeout
	}
	if out.HalfOpenMaxCall == 0 {
		out.HalfOpenMaxCall = def.HalfOpenMaxCall
	}
	if out.Interval <= 0 {
		out.Interval = 2 * out.OpenTimeout
	}
	return out
}

// Breaker trips after a failure ratio is reached and rejects calls until OpenTimeout passes.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

// NewBreaker creates a named breaker. countsAsFailure decides which errors trip it;
// nil counts every error.
func NewBreaker(name string, cfg BreakerConfig, countsAsFailure func(error) bool, logger *zap.Logger) *Breaker {
	cfg = cfg.normalize()
	if countsAsFailure == nil {
		countsAsFailure = func(error) bool { return true }
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxCall,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit_breaker_state_change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// Execute runs fn through the breaker.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return err
}

// State returns the current breaker state name.
func (b *Breaker) State() string { return b.cb.State().String() }
