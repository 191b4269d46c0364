package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(time.Second, nil).
		Register("llamacloud", &mockChecker{}).
		Register("router", &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["llamacloud"] != CheckOK {
		t.Errorf("expected llamacloud %q, got %q", CheckOK, r.Checks["llamacloud"])
	}
	if r.Checks["router"] != CheckOK {
		t.Errorf("expected router %q, got %q", CheckOK, r.Checks["router"])
	}
}

func TestCheck_OneFailing(t *testing.T) {
	svc := New(time.Second, nil).
		Register("llamacloud", &mockChecker{}).
		Register("cache", CheckerFunc(func(context.Context) error { return errors.New("conn refused") }))
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["cache"] != CheckError {
		t.Errorf("expected cache %q, got %q", CheckError, r.Checks["cache"])
	}
	if r.Checks["llamacloud"] != CheckOK {
		t.Errorf("expected llamacloud %q, got %q", CheckOK, r.Checks["llamacloud"])
	}
}

func TestCheck_AllFailing(t *testing.T) {
	svc := New(time.Second, nil).
		Register("llamacloud", &mockChecker{err: errors.New("401")}).
		Register("router", &mockChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}

func TestCheck_NilCheckerIgnored(t *testing.T) {
	svc := New(time.Second, nil).
		Register("llamacloud", &mockChecker{}).
		Register("router", nil)
	r := svc.Check(context.Background())

	if _, ok := r.Checks["router"]; ok {
		t.Error("nil checker must not be reported")
	}
	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
}

func TestCheck_Timeout(t *testing.T) {
	svc := New(20*time.Millisecond, nil).
		Register("slow", CheckerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))
	r := svc.Check(context.Background())

	if r.Checks["slow"] != CheckError {
		t.Errorf("expected slow %q, got %q", CheckError, r.Checks["slow"])
	}
}

func TestCheck_NoChecks(t *testing.T) {
	r := New(0, nil).Check(context.Background())
	if r.Status != Healthy || len(r.Checks) != 0 {
		t.Errorf("got %+v", r)
	}
}
