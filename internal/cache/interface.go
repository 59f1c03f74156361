package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss is returned by a Backend when the key is absent or expired.
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheUnavailable wraps backend failures and timeouts. It never reaches
	// API callers; the Store degrades to a miss instead.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrInvalidTTL rejects writes without a positive TTL. Deleting a key is
	// done with Invalidate, never with a zero-TTL write.
	ErrInvalidTTL = errors.New("cache ttl must be positive")
	// ErrNilValue rejects writing a nil value as an invalidation sentinel.
	ErrNilValue = errors.New("cache value must not be nil")
	// ErrEmptyKey rejects an empty key or prefix.
	ErrEmptyKey = errors.New("cache key must not be empty")
)

// Backend is a key/value store with native per-key expiry.
// Implementations must be safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}
