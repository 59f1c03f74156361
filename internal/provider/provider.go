// Package provider adapts external catalogs and the local index to one
// search contract.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
)

// ErrUnavailable is matched by every provider failure.
var ErrUnavailable = errors.New("provider unavailable")

// Provider is one search target.
type Provider interface {
	// Name is the source name used to namespace result ids.
	Name() string

	// Search returns the provider's ranked hits. A failure is always an
	// error wrapping ErrUnavailable, never an empty page.
	Search(ctx context.Context, q Query) (*Page, error)
}

// Query is what a provider receives: the normalized text plus the category
// it is being asked about.
type Query struct {
	Text     string
	Category domain.Category
	Limit    int
}

// Item is one provider hit, in the provider's own rank order.
type Item struct {
	ID       string
	Title    string
	Subtitle string
	ImageURL string
	Details  domain.Details
}

// Page is a provider's answer. Total is the provider's own estimate of all
// matches and may exceed len(Items).
type Page struct {
	Items []Item
	Total int
}

// Error describes one failed provider call.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("provider %s unavailable", e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": HTTP %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

// Unwrap matches ErrUnavailable and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnavailable}
	}
	return []error{ErrUnavailable, e.Err}
}

// Wrap turns any error from provider name into an *Error. Errors that
// already are *Error pass through.
func Wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Provider: name, Err: err}
}

// Func adapts a function to Provider.
type Func struct {
	name string
	fn   func(ctx context.Context, q Query) (*Page, error)
}

// NewFunc returns a Provider named name backed by fn.
func NewFunc(name string, fn func(ctx context.Context, q Query) (*Page, error)) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Search(ctx context.Context, q Query) (*Page, error) {
	page, err := f.fn(ctx, q)
	if err != nil {
		return nil, Wrap(f.name, err)
	}
	if page == nil {
		page = &Page{}
	}
	return page, nil
}
