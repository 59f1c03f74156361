// Package clock holds the time arithmetic shared by the cache and the rate limiter.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the injectable time source. Production code uses Real(); tests use
// clockwork.NewFakeClock() and advance it explicitly.
type Clock = clockwork.Clock

// Real returns the wall clock.
func Real() Clock {
	return clockwork.NewRealClock()
}

// ExpiresAt returns the instant an entry written at now with ttl stops being visible.
func ExpiresAt(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl)
}

// Visible reports whether an entry with the given expiry can still be read at now.
// An entry is visible iff now < expiresAt.
func Visible(now, expiresAt time.Time) bool {
	return now.Before(expiresAt)
}

// WindowExpired reports whether a fixed window that started at start has elapsed.
func WindowExpired(now, start time.Time, window time.Duration) bool {
	return now.Sub(start) >= window
}

// WindowReset returns when a fixed window that started at start resets.
func WindowReset(start time.Time, window time.Duration) time.Time {
	return start.Add(window)
}

// Remaining returns until - now, clamped at zero.
func Remaining(now, until time.Time) time.Duration {
	if d := until.Sub(now); d > 0 {
		return d
	}
	return 0
}

// CeilSeconds rounds d up to whole seconds, the unit of Retry-After headers.
func CeilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
