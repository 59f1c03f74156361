package clock

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestVisibleBoundary(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	exp := ExpiresAt(now, 10*time.Second)

	assert.True(t, Visible(now, exp))
	assert.True(t, Visible(exp.Add(-time.Nanosecond), exp))
	assert.False(t, Visible(exp, exp), "entry is absent exactly at expiresAt")
	assert.False(t, Visible(exp.Add(time.Second), exp))
}

func TestWindowArithmetic(t *testing.T) {
	fc := clockwork.NewFakeClock()
	start := fc.Now()

	fc.Advance(59 * time.Second)
	assert.False(t, WindowExpired(fc.Now(), start, time.Minute))
	assert.Equal(t, time.Second, Remaining(fc.Now(), WindowReset(start, time.Minute)))

	fc.Advance(time.Second)
	assert.True(t, WindowExpired(fc.Now(), start, time.Minute))
	assert.Zero(t, Remaining(fc.Now(), WindowReset(start, time.Minute)))
}

func TestCeilSeconds(t *testing.T) {
	assert.Equal(t, int64(0), CeilSeconds(-time.Second))
	assert.Equal(t, int64(1), CeilSeconds(time.Millisecond))
	assert.Equal(t, int64(1), CeilSeconds(time.Second))
	assert.Equal(t, int64(2), CeilSeconds(1500*time.Millisecond))
}
