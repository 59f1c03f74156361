package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/clock"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
)

// RateWindow is one identifier's counter within the current fixed window.
type RateWindow struct {
	Count  int64
	Start  time.Time
	Length time.Duration
}

// MemoryBackend keeps counters in process memory. Limits are per instance.
type MemoryBackend struct {
	mu      sync.Mutex
	windows map[string]*RateWindow
	clock   clock.Clock
}

// NewMemoryBackend creates an empty counter table.
func NewMemoryBackend(clk clock.Clock) *MemoryBackend {
	if clk == nil {
		clk = clock.Real()
	}
	return &MemoryBackend{
		windows: make(map[string]*RateWindow),
		clock:   clk,
	}
}

func (b *MemoryBackend) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.windows[key]
	if !ok || clock.WindowExpired(now, w.Start, w.Length) {
		w = &RateWindow{Start: now, Length: window}
		b.windows[key] = w
	}
	w.Count++

	return w.Count, clock.Remaining(now, clock.WindowReset(w.Start, w.Length)), nil
}

func (b *MemoryBackend) Peek(_ context.Context, key string) (int64, time.Duration, error) {
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.windows[key]
	if !ok || clock.WindowExpired(now, w.Start, w.Length) {
		return 0, 0, nil
	}
	return w.Count, clock.Remaining(now, clock.WindowReset(w.Start, w.Length)), nil
}

// Sweep drops windows that have elapsed and returns how many were removed.
func (b *MemoryBackend) Sweep() int {
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for key, w := range b.windows {
		if clock.WindowExpired(now, w.Start, w.Length) {
			delete(b.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked windows, elapsed or not.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.windows)
}

// StartJanitor runs Sweep every interval until ctx is done.
func (b *MemoryBackend) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := b.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if n := b.Sweep(); n > 0 {
					l := log.L()
					l.Debug().Int("removed", n).Msg("rate limit windows swept")
				}
			}
		}
	}()
}

func (b *MemoryBackend) Close() error {
	return nil
}
