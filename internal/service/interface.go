package service

import (
	"context"
	"errors"
	"time"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/index"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/ratelimit"
)

var (
	// ErrInvalidPrefix rejects an invalidation outside the search cache namespace.
	ErrInvalidPrefix = errors.New("invalidation prefix outside the search cache namespace")
	// ErrAnalyticsUnavailable means no readable analytics store is configured.
	ErrAnalyticsUnavailable = errors.New("analytics store not readable")
	// ErrUnknownPolicy names a rate limit policy that is not registered.
	ErrUnknownPolicy = errors.New("unknown rate limit policy")
)

// SearchService defines the interface for search business logic.
type SearchService interface {
	// Search runs the rate limit, cache, dispatch and merge pipeline for one request.
	Search(ctx context.Context, caller domain.Caller, req *domain.SearchRequest) (*domain.AggregatedResponse, error)

	// RateLimitInfo reports the caller's remaining quota for policy without consuming it.
	RateLimitInfo(ctx context.Context, caller domain.Caller, policy string) (ratelimit.Decision, bool)
	// ConsumeQuota counts one action of the caller against policy. Services
	// enforcing the social action limits call it before doing the work.
	ConsumeQuota(ctx context.Context, caller domain.Caller, policy string) (ratelimit.Decision, error)

	// Invalidate drops cached searches under prefix and returns how many were removed.
	Invalidate(ctx context.Context, prefix string) (int, error)
	InvalidateCategory(ctx context.Context, category domain.Category) (int, error)

	// IndexDocument writes an in-app entity to the local index and drops
	// cached searches of its category.
	IndexDocument(ctx context.Context, doc index.Document) error
	DeleteDocument(ctx context.Context, kind index.Kind, id string) error

	SearchAnalytics(ctx context.Context, from, to time.Time, limit int) ([]domain.SearchAnalytics, error)
}
