package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/index"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/service"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/middleware"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/response"
)

const (
	msgRateLimited = "too many requests, try again shortly"
	msgUnavailable = "service temporarily unavailable"

	defaultAnalyticsLimit = 100

	// AdminRole guards the index, cache and analytics endpoints.
	AdminRole = "admin"
)

// Handler handles HTTP requests for the search gateway.
type Handler struct {
	searchService service.SearchService
}

// NewHandler creates a new HTTP handler.
func NewHandler(searchService service.SearchService) *Handler {
	return &Handler{
		searchService: searchService,
	}
}

// RegisterRoutes registers all routes. Identity must already be in the chain.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/search", h.Search)
		api.GET("/ratelimit", h.RateLimitInfo)
		api.POST("/ratelimit/:policy", h.ConsumeQuota)
	}

	admin := api.Group("", middleware.RequireRole(AdminRole))
	{
		admin.POST("/index/documents", h.IndexDocument)
		admin.DELETE("/index/documents/:kind/:id", h.DeleteDocument)
		admin.DELETE("/cache", h.InvalidateCache)
		admin.GET("/analytics/search", h.SearchAnalytics)
	}
}

func callerOf(c *gin.Context) domain.Caller {
	return domain.Caller{
		UserID:    middleware.GetUserID(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// Search handles the aggregated search across every category.
func (h *Handler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		l.Warn().Err(err).Msg("invalid search request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.searchService.Search(ctx, callerOf(c), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, result)
}

// RateLimitInfo reports the caller's quota without consuming it.
func (h *Handler) RateLimitInfo(c *gin.Context) {
	ctx := c.Request.Context()
	policy := c.Query("policy")

	d, ok := h.searchService.RateLimitInfo(ctx, callerOf(c), policy)
	if !ok {
		response.NotFound(c, "unknown rate limit policy")
		return
	}

	setRateLimitHeaders(c, d.Limit, d.Remaining, d.ResetAt)
	response.Success(c, RateLimitInfo{
		Policy:    policy,
		Limit:     d.Limit,
		Remaining: d.Remaining,
		ResetAt:   d.ResetAt,
		Degraded:  d.Degraded,
	})
}

// ConsumeQuota counts one action against a policy and answers 429 once the
// caller is over it.
func (h *Handler) ConsumeQuota(c *gin.Context) {
	policy := c.Param("policy")

	d, err := h.searchService.ConsumeQuota(c.Request.Context(), callerOf(c), policy)
	if err != nil {
		h.writeError(c, err)
		return
	}

	setRateLimitHeaders(c, d.Limit, d.Remaining, d.ResetAt)
	response.Success(c, RateLimitInfo{
		Policy:    policy,
		Limit:     d.Limit,
		Remaining: d.Remaining,
		ResetAt:   d.ResetAt,
		Degraded:  d.Degraded,
	})
}

// RateLimitInfo is the body of GET /ratelimit and POST /ratelimit/:policy.
type RateLimitInfo struct {
	Policy    string    `json:"policy,omitempty"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
	Degraded  bool      `json:"degraded,omitempty"`
}

// IndexDocument indexes one in-app entity.
func (h *Handler) IndexDocument(c *gin.Context) {
	ctx := c.Request.Context()

	var doc index.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if err := h.searchService.IndexDocument(ctx, doc); err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, doc)
}

// DeleteDocument removes one in-app entity from the index.
func (h *Handler) DeleteDocument(c *gin.Context) {
	ctx := c.Request.Context()

	kind := index.Kind(c.Param("kind"))
	if _, ok := index.KindOf(kind.Category()); !ok {
		response.BadRequest(c, "unknown document kind")
		return
	}

	if err := h.searchService.DeleteDocument(ctx, kind, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// InvalidateCache drops cached searches by ?prefix= or ?category=.
func (h *Handler) InvalidateCache(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var (
		n   int
		err error
	)
	switch {
	case c.Query("category") != "":
		category, perr := domain.ParseCategory(c.Query("category"))
		if perr != nil {
			response.BadRequest(c, perr.Error())
			return
		}
		n, err = h.searchService.InvalidateCategory(ctx, category)
	case c.Query("prefix") != "":
		n, err = h.searchService.Invalidate(ctx, c.Query("prefix"))
	default:
		response.BadRequest(c, "prefix or category is required")
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	l.Info().Int("removed", n).Msg("search cache invalidated")
	response.Success(c, gin.H{"removed": n})
}

// SearchAnalytics lists recorded searches in [from, to).
func (h *Handler) SearchAnalytics(c *gin.Context) {
	ctx := c.Request.Context()

	from, err := parseTime(c.Query("from"))
	if err != nil {
		response.BadRequest(c, "from must be RFC3339")
		return
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		response.BadRequest(c, "to must be RFC3339")
		return
	}
	limit := defaultAnalyticsLimit
	if s := c.Query("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit <= 0 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
	}

	records, err := h.searchService.SearchAnalytics(ctx, from, to, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, records)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func setRateLimitHeaders(c *gin.Context, limit, remaining int64, resetAt time.Time) {
	c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	if !resetAt.IsZero() {
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// writeError maps the service error taxonomy onto HTTP responses.
func (h *Handler) writeError(c *gin.Context, err error) {
	l := log.Ctx(c.Request.Context())

	var rle *domain.RateLimitError
	switch {
	case errors.As(err, &rle):
		setRateLimitHeaders(c, int64(rle.Limit), 0, time.Time{})
		response.TooManyRequests(c, msgRateLimited, rle.RetryAfter)

	case errors.Is(err, domain.ErrInvalidQuery),
		errors.Is(err, domain.ErrUnknownCategory),
		errors.Is(err, index.ErrInvalidDocument),
		errors.Is(err, service.ErrInvalidPrefix):
		response.BadRequest(c, err.Error())

	case errors.Is(err, service.ErrUnknownPolicy):
		response.NotFound(c, err.Error())

	case errors.Is(err, domain.ErrProviderUnavailable),
		errors.Is(err, service.ErrAnalyticsUnavailable):
		l.Error().Err(err).Msg("request failed")
		response.ServiceUnavailable(c, msgUnavailable)

	default:
		l.Error().Err(err).Msg("request failed")
		response.InternalError(c, "internal error")
	}
}
