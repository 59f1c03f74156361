package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited means the caller exceeded its quota.
	ErrRateLimited = errors.New("too many requests, try again shortly")
	// ErrProviderUnavailable means every target of the category failed or timed out.
	ErrProviderUnavailable = errors.New("search provider unavailable")
	// ErrIndexUnavailable is the local-index flavour of ErrProviderUnavailable.
	ErrIndexUnavailable = fmt.Errorf("local index unavailable: %w", ErrProviderUnavailable)

	ErrInvalidQuery    = errors.New("invalid search query")
	ErrUnknownCategory = errors.New("unknown search category")
)

// RateLimitError carries the retry hint for a denied caller.
type RateLimitError struct {
	Identifier string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d exceeded for %s, retry in %s", e.Limit, e.Identifier, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// SourceError records the failure of one dispatch target.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// UnavailableError is returned when no target of a category succeeded.
type UnavailableError struct {
	Category Category
	Sources  []*SourceError
}

func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("all sources failed for category %s", e.Category)
	for _, s := range e.Sources {
		msg += "; " + s.Error()
	}
	return msg
}

// Unwrap lets errors.Is match ErrIndexUnavailable for local categories and
// ErrProviderUnavailable for all of them.
func (e *UnavailableError) Unwrap() error {
	if e.Category.Local() {
		return ErrIndexUnavailable
	}
	return ErrProviderUnavailable
}
