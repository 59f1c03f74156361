package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/analytics"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/cache"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/clock"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/index"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/provider"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/ratelimit"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
)

const (
	defaultItemsPerPage    = 20
	defaultProviderTimeout = 3 * time.Second
	defaultCacheTTL        = 5 * time.Minute
	defaultMaxFetch        = 100
)

// Config tunes the search pipeline.
type Config struct {
	CachePrefix     string
	CacheTTL        time.Duration
	ItemsPerPage    int
	ProviderTimeout time.Duration
	// MaxFetch caps how many hits are requested from each source.
	MaxFetch     int
	Singleflight bool
}

// Deps are the collaborators of the search service. Recorder, Index,
// Analytics and Relay are optional.
type Deps struct {
	Providers *provider.Registry
	Cache     *cache.Store
	Limiter   *ratelimit.Registry
	Recorder  *analytics.Recorder
	Index     index.Index
	Analytics analytics.Reader
	Relay     *InvalidationRelay
	Clock     clock.Clock
}

type searchServiceImpl struct {
	deps Deps
	cfg  Config
	sf   singleflight.Group
}

// NewSearchService creates a new search service.
func NewSearchService(deps Deps, cfg Config) SearchService {
	if cfg.CachePrefix == "" {
		cfg.CachePrefix = "faveit"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.ItemsPerPage <= 0 {
		cfg.ItemsPerPage = defaultItemsPerPage
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}
	if cfg.MaxFetch <= 0 {
		cfg.MaxFetch = defaultMaxFetch
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	return &searchServiceImpl{deps: deps, cfg: cfg}
}

func (s *searchServiceImpl) Search(ctx context.Context, caller domain.Caller, req *domain.SearchRequest) (*domain.AggregatedResponse, error) {
	start := s.deps.Clock.Now()

	q, err := domain.NewSearchQuery(req)
	if err != nil {
		return nil, err
	}

	identifier := caller.Identifier()
	ctx = log.WithStr(ctx, log.FieldCategory, string(q.Category))
	l := log.Ctx(ctx)

	decision := s.deps.Limiter.Check(ctx, ratelimit.PolicySearch, identifier)
	if !decision.Allowed {
		l.Info().Str(log.FieldCaller, identifier).Dur("retry_after", decision.RetryAfter).Msg("search rate limited")
		return nil, &domain.RateLimitError{
			Identifier: identifier,
			Limit:      int(decision.Limit),
			RetryAfter: decision.RetryAfter,
		}
	}

	key := q.Fingerprint(s.cfg.CachePrefix)

	var cached domain.AggregatedResponse
	if s.deps.Cache.Get(ctx, key, &cached) {
		l.Debug().Str(log.FieldCacheKey, key).Msg("search cache hit")
		s.record(ctx, caller, q, &cached, start, true)
		return &cached, nil
	}
	l.Debug().Str(log.FieldCacheKey, key).Msg("search cache miss")

	var resp *domain.AggregatedResponse
	if s.cfg.Singleflight {
		// The shared dispatch outlives any one caller. Sources stay bounded
		// by the provider timeout.
		shared := log.Detach(ctx)
		ch := s.sf.DoChan(key, func() (interface{}, error) {
			return s.dispatch(shared, key, q)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			if res.Shared {
				l.Debug().Str(log.FieldCacheKey, key).Msg("search coalesced")
			}
			resp = res.Val.(*domain.AggregatedResponse)
		}
	} else {
		resp, err = s.dispatch(ctx, key, q)
		if err != nil {
			return nil, err
		}
	}

	s.record(ctx, caller, q, resp, start, false)
	return resp, nil
}

// dispatch fans out to every source of the category, merges what came
// back and writes complete responses to the cache.
func (s *searchServiceImpl) dispatch(ctx context.Context, key string, q *domain.SearchQuery) (*domain.AggregatedResponse, error) {
	l := log.Ctx(ctx)

	providers := s.deps.Providers.For(q.Category)
	if len(providers) == 0 {
		l.Error().Msg("no sources configured for category")
		return nil, &domain.UnavailableError{Category: q.Category}
	}

	limit := s.cfg.MaxFetch
	if q.Page <= s.cfg.MaxFetch/s.cfg.ItemsPerPage {
		limit = min(q.Page*s.cfg.ItemsPerPage+1, s.cfg.MaxFetch)
	}
	pq := provider.Query{Text: q.Text, Category: q.Category, Limit: limit}

	pages := make([]*provider.Page, len(providers))
	errs := make([]error, len(providers))

	// Sources do not cancel each other: one failing must not abort the rest.
	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			pages[i], errs[i] = s.callProvider(ctx, p, pq)
			return nil
		})
	}
	_ = g.Wait()

	var (
		ok       []sourcePage
		failures []*domain.SourceError
		failed   []string
		total    int
	)
	for i, p := range providers {
		if errs[i] != nil {
			failures = append(failures, &domain.SourceError{Source: p.Name(), Err: errs[i]})
			failed = append(failed, p.Name())
			continue
		}
		ok = append(ok, sourcePage{source: p.Name(), page: pages[i]})
		total += pages[i].Total
	}

	if len(ok) == 0 {
		err := &domain.UnavailableError{Category: q.Category, Sources: failures}
		l.Error().Err(err).Str(log.FieldQuery, q.Text).Msg("all sources failed")
		return nil, err
	}
	for _, f := range failures {
		l.Warn().Err(f.Err).Str(log.FieldSource, f.Source).Str(log.FieldQuery, q.Text).Msg("source failed, returning partial results")
	}

	merged := merge(q.Category, ok)
	merged = applyFilters(merged, q.Filters)
	applySort(merged, q.SortBy)

	estimate := len(merged)
	if q.Filters.Empty() && total > estimate {
		estimate = total
	}

	results, hasMore := paginate(merged, q.Page, s.cfg.ItemsPerPage)
	resp := &domain.AggregatedResponse{
		Query:         q.Text,
		Category:      q.Category,
		Page:          q.Page,
		Results:       results,
		TotalEstimate: estimate,
		HasMore:       hasMore,
		Partial:       len(failed) > 0,
		FailedSources: failed,
	}

	// Partial responses are not cached so a recovered source is seen on the next call.
	if !resp.Partial {
		if err := s.deps.Cache.Set(log.Detach(ctx), key, resp, s.cfg.CacheTTL); err != nil {
			l.Warn().Err(err).Str(log.FieldCacheKey, key).Msg("cache set error")
		}
	}

	return resp, nil
}

// callProvider bounds one source call by the provider timeout, even when the
// provider ignores its context.
func (s *searchServiceImpl) callProvider(ctx context.Context, p provider.Provider, q provider.Query) (*provider.Page, error) {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	type result struct {
		page *provider.Page
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: provider.Wrap(p.Name(), fmt.Errorf("panic: %v", r))}
			}
		}()
		page, err := p.Search(pctx, q)
		done <- result{page: page, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, provider.Wrap(p.Name(), r.err)
		}
		if r.page == nil {
			return &provider.Page{}, nil
		}
		return r.page, nil
	case <-pctx.Done():
		return nil, provider.Wrap(p.Name(), pctx.Err())
	}
}

func (s *searchServiceImpl) record(ctx context.Context, caller domain.Caller, q *domain.SearchQuery, resp *domain.AggregatedResponse, start time.Time, cacheHit bool) {
	if s.deps.Recorder == nil {
		return
	}
	s.deps.Recorder.Record(ctx, domain.SearchAnalytics{
		Query:         q.Text,
		Category:      q.Category,
		Timestamp:     start.UTC(),
		ResultCount:   len(resp.Results),
		Caller:        caller.Identifier(),
		UserAgent:     caller.UserAgent,
		DurationMs:    s.deps.Clock.Since(start).Milliseconds(),
		CacheHit:      cacheHit,
		Partial:       resp.Partial,
		FailedSources: resp.FailedSources,
	})
}

func (s *searchServiceImpl) RateLimitInfo(ctx context.Context, caller domain.Caller, policy string) (ratelimit.Decision, bool) {
	if policy == "" {
		policy = ratelimit.PolicySearch
	}
	return s.deps.Limiter.Info(ctx, policy, caller.Identifier())
}

func (s *searchServiceImpl) ConsumeQuota(ctx context.Context, caller domain.Caller, policy string) (ratelimit.Decision, error) {
	if _, ok := s.deps.Limiter.Limiter(policy); !ok {
		return ratelimit.Decision{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}

	identifier := caller.Identifier()
	d := s.deps.Limiter.Check(ctx, policy, identifier)
	if !d.Allowed {
		l := log.Ctx(ctx)
		l.Info().Str(log.FieldPolicy, policy).Str(log.FieldCaller, identifier).Msg("action rate limited")
		return d, &domain.RateLimitError{Identifier: identifier, Limit: int(d.Limit), RetryAfter: d.RetryAfter}
	}
	return d, nil
}

func (s *searchServiceImpl) Invalidate(ctx context.Context, prefix string) (int, error) {
	if !strings.HasPrefix(prefix, s.cfg.CachePrefix+":search:") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}

	n, err := s.deps.Cache.Invalidate(ctx, prefix)
	if err != nil {
		return n, err
	}
	if s.deps.Relay != nil {
		s.deps.Relay.Publish(ctx, prefix)
	}
	return n, nil
}

func (s *searchServiceImpl) InvalidateCategory(ctx context.Context, category domain.Category) (int, error) {
	return s.Invalidate(ctx, domain.CategoryKeyPrefix(s.cfg.CachePrefix, category))
}

func (s *searchServiceImpl) IndexDocument(ctx context.Context, doc index.Document) error {
	if s.deps.Index == nil {
		return domain.ErrIndexUnavailable
	}
	if err := s.deps.Index.Index(ctx, doc); err != nil {
		return s.indexError(err)
	}
	s.invalidateAfterWrite(ctx, doc.Kind)
	return nil
}

func (s *searchServiceImpl) DeleteDocument(ctx context.Context, kind index.Kind, id string) error {
	if s.deps.Index == nil {
		return domain.ErrIndexUnavailable
	}
	if err := s.deps.Index.Delete(ctx, kind, id); err != nil {
		return s.indexError(err)
	}
	s.invalidateAfterWrite(ctx, kind)
	return nil
}

func (s *searchServiceImpl) indexError(err error) error {
	if errors.Is(err, index.ErrInvalidDocument) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
}

// invalidateAfterWrite drops the category's cached searches. The write has
// already succeeded, so a cache failure is only logged; stale entries
// then age out with their TTL.
func (s *searchServiceImpl) invalidateAfterWrite(ctx context.Context, kind index.Kind) {
	if _, err := s.InvalidateCategory(ctx, kind.Category()); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldCategory, string(kind)).Msg("failed to invalidate search cache after index write")
	}
}

func (s *searchServiceImpl) SearchAnalytics(ctx context.Context, from, to time.Time, limit int) ([]domain.SearchAnalytics, error) {
	if s.deps.Analytics == nil {
		return nil, ErrAnalyticsUnavailable
	}
	return s.deps.Analytics.Between(ctx, from, to, limit)
}
