package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/clock"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
)

const (
	defaultOpTimeout = 100 * time.Millisecond
	anonymous        = "anonymous"
)

// Policy is a named fixed-window limit.
type Policy struct {
	Name   string
	Limit  int64
	Window time.Duration
}

func (p Policy) validate() error {
	if p.Name == "" || p.Limit <= 0 || p.Window <= 0 {
		return fmt.Errorf("%w: %q limit=%d window=%s", ErrInvalidPolicy, p.Name, p.Limit, p.Window)
	}
	return nil
}

// Decision is the outcome of one check.
type Decision struct {
	Allowed bool
	// Degraded is set when the backend could not be consulted and the
	// request was let through.
	Degraded   bool
	Limit      int64
	Count      int64
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Option customises a Limiter or Registry.
type Option func(*options)

type options struct {
	prefix    string
	opTimeout time.Duration
	clock     clock.Clock
}

// WithPrefix sets the key namespace. Keys are <prefix>:<policy>:<identifier>.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithOpTimeout bounds every backend call.
func WithOpTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.opTimeout = d
		}
	}
}

// WithClock injects the time source used to compute ResetAt.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func newOptions(opts []Option) options {
	o := options{prefix: "ratelimit", opTimeout: defaultOpTimeout, clock: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Limiter enforces one Policy.
type Limiter struct {
	backend Backend
	policy  Policy
	opts    options
}

// NewLimiter returns a limiter for policy on backend.
func NewLimiter(backend Backend, policy Policy, opts ...Option) (*Limiter, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}
	return &Limiter{backend: backend, policy: policy, opts: newOptions(opts)}, nil
}

// Policy returns the enforced policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

func (l *Limiter) key(identifier string) string {
	if identifier == "" {
		identifier = anonymous
	}
	return l.opts.prefix + ":" + l.policy.Name + ":" + identifier
}

// Check counts one request for identifier. The request is allowed iff the
// post-increment count is at most the limit. A backend failure or timeout
// allows the request and logs a warning.
func (l *Limiter) Check(ctx context.Context, identifier string) Decision {
	opCtx, cancel := context.WithTimeout(ctx, l.opts.opTimeout)
	defer cancel()

	count, resetIn, err := l.backend.Incr(opCtx, l.key(identifier), l.policy.Window)
	if err != nil {
		l.warnUnavailable(ctx, identifier, err)
		return l.degraded()
	}

	d := l.decision(count, resetIn)
	d.Allowed = count <= l.policy.Limit
	if !d.Allowed {
		d.RetryAfter = resetIn
	}
	return d
}

// Allow is Check reduced to its verdict.
func (l *Limiter) Allow(ctx context.Context, identifier string) bool {
	return l.Check(ctx, identifier).Allowed
}

// Info reports the identifier's quota without consuming any of it.
func (l *Limiter) Info(ctx context.Context, identifier string) Decision {
	opCtx, cancel := context.WithTimeout(ctx, l.opts.opTimeout)
	defer cancel()

	count, resetIn, err := l.backend.Peek(opCtx, l.key(identifier))
	if err != nil {
		l.warnUnavailable(ctx, identifier, err)
		return l.degraded()
	}

	d := l.decision(count, resetIn)
	d.Allowed = count < l.policy.Limit
	if !d.Allowed {
		d.RetryAfter = resetIn
	}
	return d
}

func (l *Limiter) decision(count int64, resetIn time.Duration) Decision {
	remaining := l.policy.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Limit:     l.policy.Limit,
		Count:     count,
		Remaining: remaining,
		ResetAt:   l.opts.clock.Now().Add(resetIn),
	}
}

func (l *Limiter) degraded() Decision {
	return Decision{
		Allowed:   true,
		Degraded:  true,
		Limit:     l.policy.Limit,
		Remaining: l.policy.Limit,
		ResetAt:   l.opts.clock.Now().Add(l.policy.Window),
	}
}

func (l *Limiter) warnUnavailable(ctx context.Context, identifier string, err error) {
	logger := log.Ctx(ctx)
	logger.Warn().
		Err(fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)).
		Str(log.FieldPolicy, l.policy.Name).
		Str(log.FieldCaller, identifier).
		Msg("rate limiter unavailable, failing open")
}
