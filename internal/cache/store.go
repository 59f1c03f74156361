package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
)

const defaultOpTimeout = 200 * time.Millisecond

// Store is the fail-open front of a Backend. A slow or broken backend turns
// reads into misses and writes into logged no-ops; it never serves an entry
// past its TTL and never fails the caller's request.
type Store struct {
	backend   Backend
	opTimeout time.Duration
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithOpTimeout bounds every backend call.
func WithOpTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// NewStore wraps backend.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{backend: backend, opTimeout: defaultOpTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetRaw returns the stored bytes, or false when absent, expired or unreachable.
func (s *Store) GetRaw(ctx context.Context, key string) ([]byte, bool) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	data, err := s.backend.Get(opCtx, key)
	if err == nil {
		return data, true
	}
	if !errors.Is(err, ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldCacheKey, key).Msg("cache unavailable, treating as miss")
	}
	return nil, false
}

// Get decodes the stored JSON into dst. An undecodable entry counts as a miss.
func (s *Store) Get(ctx context.Context, key string, dst any) bool {
	data, ok := s.GetRaw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldCacheKey, key).Msg("cache entry undecodable, treating as miss")
		return false
	}
	return true
}

// SetRaw writes bytes with a positive TTL.
func (s *Store) SetRaw(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	switch {
	case key == "":
		return ErrEmptyKey
	case value == nil:
		return ErrNilValue
	case ttl <= 0:
		return ErrInvalidTTL
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.backend.Set(opCtx, key, value, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Set encodes value as JSON and writes it with a positive TTL.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if value == nil {
		return ErrNilValue
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}
	if string(data) == "null" {
		return ErrNilValue
	}
	return s.SetRaw(ctx, key, data, ttl)
}

// Invalidate removes keyOrPrefix and every key that starts with it. Missing
// keys are a no-op.
func (s *Store) Invalidate(ctx context.Context, keyOrPrefix string) (int, error) {
	if keyOrPrefix == "" {
		return 0, ErrEmptyKey
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	n, err := s.backend.DeletePrefix(opCtx, keyOrPrefix)
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldCacheKey, keyOrPrefix).Int("removed", n).Msg("cache invalidated")
	return n, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
