package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/clock"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is an in-process Backend for single-instance deployments and
// tests. Expired entries are invisible immediately and physically removed by Sweep.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   clock.Clock
}

// NewMemoryBackend creates an empty in-process cache.
func NewMemoryBackend(clk clock.Clock) *MemoryBackend {
	if clk == nil {
		clk = clock.Real()
	}
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		clock:   clk,
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || !clock.Visible(m.clock.Now(), e.expiresAt) {
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	// Stored values are never mutated in place, so keep a private copy.
	v := make([]byte, len(value))
	copy(v, value)

	m.mu.Lock()
	m.entries[key] = memoryEntry{value: v, expiresAt: clock.ExpiresAt(m.clock.Now(), ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) DeletePrefix(_ context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, ErrEmptyKey
	}

	now := m.clock.Now()
	removed := 0

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if strings.HasPrefix(k, prefix) {
			if clock.Visible(now, e.expiresAt) {
				removed++
			}
			delete(m.entries, k)
		}
	}
	return removed, nil
}

// Sweep drops expired entries and returns how many were dropped.
func (m *MemoryBackend) Sweep() int {
	now := m.clock.Now()
	dropped := 0

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if !clock.Visible(now, e.expiresAt) {
			delete(m.entries, k)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of physically retained entries, expired or not.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// StartJanitor sweeps on every interval until ctx is done.
func (m *MemoryBackend) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := m.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if n := m.Sweep(); n > 0 {
					l := log.L()
					l.Debug().Int("dropped", n).Msg("memory cache sweep")
				}
			}
		}
	}()
}

func (m *MemoryBackend) Close() error {
	return nil
}
