// Package db defines the key-value contract shared by cache-backed repositories.
// Implementations live in subpackages (see db/redis).
package db

import (
	"context"
	"time"
)

// Store is a connected key-value backend with a lifecycle.
type Store interface {
	KVStore
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// KVStore reads and writes opaque values. Get reports a missing or expired
// key as ErrKeyNotFound.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
