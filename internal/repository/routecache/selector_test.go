package routecache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/thebeast/llamarouter/internal/db"
	"github.com/thebeast/llamarouter/internal/domain/target"
)

func TestSelect_CacheMiss(t *testing.T) {
	inner := &mockSelector{choice: "thematic"}
	cs, ms := newTestCachedSelector(t, inner)

	var (
		setKey   string
		setValue string
		setTTL   time.Duration
	)
	ms.setFn = func(_ context.Context, key string, value []byte, ttl time.Duration) error {
		setKey, setValue, setTTL = key, string(value), ttl
		return nil
	}

	got, err := cs.Select(context.Background(), "What themes?", candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "thematic" || inner.calls != 1 {
		t.Fatalf("got %q after %d inner calls", got, inner.calls)
	}
	if !strings.HasPrefix(setKey, cacheKeyPrefix) || setValue != "thematic" || setTTL != 10*time.Minute {
		t.Errorf("cached %q=%q ttl=%v", setKey, setValue, setTTL)
	}
}

func TestSelect_CacheHit(t *testing.T) {
	inner := &mockSelector{choice: "deals"}
	cs, ms := newTestCachedSelector(t, inner)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte("thematic"), nil
	}

	got, err := cs.Select(context.Background(), "What themes?", candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "thematic" {
		t.Errorf("got %q, want cached thematic", got)
	}
	if inner.calls != 0 {
		t.Errorf("inner selector called %d times on hit", inner.calls)
	}
}

func TestSelect_StaleEntryForUnknownTarget(t *testing.T) {
	inner := &mockSelector{choice: "deals"}
	cs, ms := newTestCachedSelector(t, inner)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte("retired-index"), nil
	}

	got, err := cs.Select(context.Background(), "q", candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "deals" || inner.calls != 1 {
		t.Errorf("got %q after %d inner calls", got, inner.calls)
	}
}

func TestSelect_StoreErrorsIgnored(t *testing.T) {
	inner := &mockSelector{choice: "deals"}
	cs, ms := newTestCachedSelector(t, inner)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpGet, Err: errors.New("connection refused")}
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return &db.Error{Op: db.OpSet, Err: errors.New("connection refused")}
	}

	got, err := cs.Select(context.Background(), "q", candidates)
	if err != nil {
		t.Fatalf("cache failure must not fail selection: %v", err)
	}
	if got != "deals" {
		t.Errorf("got %q", got)
	}
}

func TestSelect_InnerErrorNotCached(t *testing.T) {
	inner := &mockSelector{err: errors.New("model unavailable")}
	cs, ms := newTestCachedSelector(t, inner)

	var setCalled bool
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		setCalled = true
		return nil
	}

	_, err := cs.Select(context.Background(), "q", candidates)
	if err == nil || err.Error() != "model unavailable" {
		t.Fatalf("expected inner error unchanged, got %v", err)
	}
	if setCalled {
		t.Error("failed selection must not be cached")
	}
}

func TestSelect_Metrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_route_cache_total"}, []string{"result"})
	inner := &mockSelector{choice: "deals"}
	ms := &mockKVStore{}
	cs := New(inner, ms, time.Minute, counter, zap.NewNop())

	if _, err := cs.Select(context.Background(), "q", candidates); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return []byte("deals"), nil }
	if _, err := cs.Select(context.Background(), "q", candidates); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v := testutil.ToFloat64(counter.WithLabelValues("miss")); v != 1 {
		t.Errorf("miss = %v", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("hit")); v != 1 {
		t.Errorf("hit = %v", v)
	}
}

func TestCacheKey(t *testing.T) {
	a := cacheKey("q", candidates)
	if a != cacheKey("q", candidates) {
		t.Error("key must be deterministic")
	}
	if a == cacheKey("q2", candidates) {
		t.Error("different queries must differ")
	}
	reordered := []target.Target{candidates[1], candidates[0]}
	if a == cacheKey("q", reordered) {
		t.Error("candidate order is part of the key")
	}
	if a == cacheKey("q", candidates[:1]) {
		t.Error("candidate set is part of the key")
	}
	redescribed := []target.Target{candidates[0], {Name: candidates[1].Name, Description: "Quarterly board decks"}}
	if a == cacheKey("q", redescribed) {
		t.Error("a changed description must not reuse the old decision")
	}
}
