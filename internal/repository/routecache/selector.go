package routecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/thebeast/llamarouter/internal/db"
	"github.com/thebeast/llamarouter/internal/domain/target"
	logpkg "github.com/thebeast/llamarouter/internal/logger"
)

const cacheKeyPrefix = "llamarouter:route:"

// store is the consumer interface for the route cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// selector mirrors route.Selector.
type selector interface {
	Select(ctx context.Context, query string, candidates []target.Target) (string, error)
}

// CachedSelector remembers routing decisions in a key-value store.
// Store failures are logged and never fail the selection.
type CachedSelector struct {
	inner      selector
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner selector,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSelector{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Select returns a cached decision for the same query and candidate list,
// or asks the inner selector and caches its answer.
func (c *CachedSelector) Select(ctx context.Context, query string, candidates []target.Target) (string, error) {
	log := logpkg.FromContext(ctx, c.logger)
	key := cacheKey(query, candidates)

	if name, ok := c.getFromCache(ctx, log, key, candidates); ok {
		c.incCache("hit")
		return name, nil
	}

	c.incCache("miss")

	name, err := c.inner.Select(ctx, query, candidates)
	if err != nil {
		return "", err
	}

	if err := c.store.SetWithTTL(ctx, key, []byte(name), c.ttl); err != nil {
		log.Warn("Failed to cache route", zap.String("key", key), zap.Error(err))
	}
	return name, nil
}

func (c *CachedSelector) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedSelector) getFromCache(
	ctx context.Context, log *zap.Logger, key string, candidates []target.Target,
) (string, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			log.Warn("Failed to get cached route", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}

	name := string(data)
	for _, t := range candidates {
		if t.Name == name {
			return name, true
		}
	}
	if name != "" {
		log.Warn("Ignoring cached route for unknown target", zap.String("key", key), zap.String("target", name))
	}
	return "", false
}

// cacheKey hashes the query together with the ordered candidates. Descriptions are
// part of the key since the selector decides from them.
func cacheKey(query string, candidates []target.Target) string {
	h := sha256.New()
	h.Write([]byte(query))
	for _, t := range candidates {
		h.Write([]byte{0})
		h.Write([]byte(t.Name))
		h.Write([]byte{0x1f})
		h.Write([]byte(t.Description))
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
