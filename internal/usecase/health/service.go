package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultTimeout bounds each individual check.
const DefaultTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type namedChecker struct {
	name    string
	checker Checker
}

// Service coordinates health checks.
type Service struct {
	checkers []namedChecker
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates a Service with no checks registered.
func New(timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{timeout: timeout, logger: logger}
}

// Register adds a named check. A nil checker is ignored.
func (s *Service) Register(name string, c Checker) *Service {
	if c != nil {
		s.checkers = append(s.checkers, namedChecker{name: name, checker: c})
	}
	return s
}

// Check runs all registered checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.checkers))

	var wg sync.WaitGroup
	for i, nc := range s.checkers {
		i, nc := i, nc
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := nc.checker.HealthCheck(checkCtx); err != nil {
				s.logger.Warn("health check failed", zap.String("check", nc.name), zap.Error(err))
				results[i] = CheckError
				return
			}
			results[i] = CheckOK
		}()
	}
	wg.Wait()

	checks := make(map[string]CheckResult, len(results))
	failed := 0
	for i, nc := range s.checkers {
		checks[nc.name] = results[i]
		if results[i] == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed > 0 && failed == len(results):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
