package resilience

import (
	"context"
	"time"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 2 * time.Second
)

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy is a bounded retry with a fixed wait between attempts.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Retryable decides whether a failed attempt may be retried. nil retries nothing.
	Retryable func(error) bool
	// Sleep defaults to a context-aware timer; tests inject a recorder.
	Sleep SleepFunc
	// OnRetry is called before each wait with the failed attempt number (1-based).
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Normalize fills unset fields with defaults.
func (p Policy) Normalize() Policy {
	out := p
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = DefaultMaxAttempts
	}
	if out.Backoff <= 0 {
		out.Backoff = DefaultBackoff
	}
	if out.Retryable == nil {
		out.Retryable = func(error) bool { return false }
	}
	if out.Sleep == nil {
		out.Sleep = Sleep
	}
	return out
}

// Do runs fn until it succeeds, fails with a non-retryable error, or MaxAttempts is
// reached. It returns the last error from fn, or ctx.Err() if the context ends first.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	p = p.Normalize()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !p.Retryable(lastErr) || attempt == p.MaxAttempts {
			return lastErr
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, p.Backoff, lastErr)
		}
		if err := p.Sleep(ctx, p.Backoff); err != nil {
			return err
		}
	}
	return lastErr
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
