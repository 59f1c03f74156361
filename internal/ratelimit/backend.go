// Package ratelimit implements fixed-window request limiting keyed by caller
// identifier, backed by Redis or process memory.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLimiterUnavailable wraps backend failures. The Limiter never returns
	// it to callers; it is logged and the request is allowed.
	ErrLimiterUnavailable = errors.New("rate limiter unavailable")

	// ErrInvalidPolicy rejects a policy with a non-positive limit or window.
	ErrInvalidPolicy = errors.New("invalid rate limit policy")
)

// Backend performs the atomic counter operations behind a Limiter.
type Backend interface {
	// Incr increments the counter for key, starting a new window of the given
	// length when none is active. It returns the post-increment count and the
	// time left until the window resets. Increment and expiry are atomic.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)

	// Peek returns the current count and time left without incrementing. An
	// absent or elapsed window reports zero for both.
	Peek(ctx context.Context, key string) (count int64, resetIn time.Duration, err error)

	Close() error
}
