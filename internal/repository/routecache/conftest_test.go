package routecache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/thebeast/llamarouter/internal/db"
	"github.com/thebeast/llamarouter/internal/domain/target"
)

type mockSelector struct {
	choice string
	err    error
	calls  int
}

func (m *mockSelector) Select(_ context.Context, _ string, _ []target.Target) (string, error) {
	m.calls++
	return m.choice, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

var candidates = []target.Target{
	{Name: "deals", Description: "Deal memos"},
	{Name: "thematic", Description: "Thematic research"},
}

func newTestCachedSelector(t *testing.T, inner *mockSelector) (*CachedSelector, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	cs := New(inner, ms, 10*time.Minute, nil, zap.NewNop())
	return cs, ms
}
