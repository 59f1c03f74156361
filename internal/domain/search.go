package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Category selects which backends a search is dispatched to.
type Category string

const (
	CategoryMovie  Category = "movie"
	CategorySeries Category = "series"
	CategoryBook   Category = "book"
	CategoryMusic  Category = "music"
	CategoryUser   Category = "user"
	CategoryPost   Category = "post"
)

// DefaultCategory is used when the caller does not name one.
const DefaultCategory = CategoryPost

// Categories lists every supported category in a stable order.
var Categories = []Category{
	CategoryMovie, CategorySeries, CategoryBook, CategoryMusic, CategoryUser, CategoryPost,
}

// ParseCategory accepts the category names case-insensitively ("Movie", "movie").
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultCategory, nil
	}
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Local reports whether the category is served by the in-app index
// rather than an external provider.
func (c Category) Local() bool {
	return c == CategoryUser || c == CategoryPost
}

// SortBy orders the merged result set.
type SortBy string

const (
	SortRelevance SortBy = "relevance"
	SortRecent    SortBy = "recent"
	SortPopular   SortBy = "popular"
)

// ParseSortBy defaults to relevance.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortRelevance:
		return SortRelevance, nil
	case SortRecent:
		return SortRecent, nil
	case SortPopular:
		return SortPopular, nil
	default:
		return "", fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, s)
	}
}

// Filters are optional constraints applied after merge.
type Filters struct {
	MinRating *float64 `json:"rating,omitempty"`
	Year      *int     `json:"year,omitempty"`
	Genre     string   `json:"genre,omitempty"`
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return f.MinRating == nil && f.Year == nil && f.Genre == ""
}

// canonical renders the filters as sorted key=value pairs.
func (f Filters) canonical() string {
	parts := make([]string, 0, 3)
	if f.Genre != "" {
		parts = append(parts, "genre="+f.Genre)
	}
	if f.MinRating != nil {
		parts = append(parts, "rating="+strconv.FormatFloat(*f.MinRating, 'f', -1, 64))
	}
	if f.Year != nil {
		parts = append(parts, "year="+strconv.Itoa(*f.Year))
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

// SearchRequest is the caller-facing search request.
type SearchRequest struct {
	Query    string   `form:"q" json:"q" binding:"required"`
	Category string   `form:"category" json:"category"`
	Page     int      `form:"page" json:"page"`
	Sort     string   `form:"sort" json:"sort"`
	Rating   *float64 `form:"rating" json:"rating"`
	Year     *int     `form:"year" json:"year"`
	Genre    string   `form:"genre" json:"genre"`
}

// SearchQuery is the normalized form of a SearchRequest.
type SearchQuery struct {
	Text     string
	Category Category
	Page     int
	SortBy   SortBy
	Filters  Filters
}

const maxQueryRunes = 256

// MaxPage is the deepest page a search may ask for.
const MaxPage = 1000

// NormalizeText case-folds, NFC-normalizes, trims and collapses inner whitespace
// so that equivalent queries share one fingerprint.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	// A Caser carries state, so build one per call.
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// NewSearchQuery validates and normalizes a request.
func NewSearchQuery(req *SearchRequest) (*SearchQuery, error) {
	text := NormalizeText(req.Query)
	if text == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	if len([]rune(text)) > maxQueryRunes {
		return nil, fmt.Errorf("%w: query longer than %d characters", ErrInvalidQuery, maxQueryRunes)
	}

	category, err := ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}
	sortBy, err := ParseSortBy(req.Sort)
	if err != nil {
		return nil, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		return nil, fmt.Errorf("%w: page beyond %d", ErrInvalidQuery, MaxPage)
	}

	if req.Rating != nil && *req.Rating < 0 {
		return nil, fmt.Errorf("%w: negative rating", ErrInvalidQuery)
	}

	return &SearchQuery{
		Text:     text,
		Category: category,
		Page:     page,
		SortBy:   sortBy,
		Filters: Filters{
			MinRating: req.Rating,
			Year:      req.Year,
			Genre:     NormalizeText(req.Genre),
		},
	}, nil
}

// canonical is the input of the fingerprint hash. The version tag lets the
// layout change without colliding with entries written by older binaries.
func (q *SearchQuery) canonical() string {
	return strings.Join([]string{
		"v1",
		string(q.Category),
		q.Text,
		strconv.Itoa(q.Page),
		string(q.SortBy),
		q.Filters.canonical(),
	}, "\x1f")
}

// Fingerprint returns the cache key for the query. It is a pure function of
// the normalized inputs and stays stable across restarts. All keys of one
// category share CategoryKeyPrefix so they can be invalidated together.
func (q *SearchQuery) Fingerprint(prefix string) string {
	return fmt.Sprintf("%s%016x", CategoryKeyPrefix(prefix, q.Category), xxhash.Sum64String(q.canonical()))
}

// CategoryKeyPrefix is the cache-key prefix shared by every search of a category.
func CategoryKeyPrefix(prefix string, c Category) string {
	return fmt.Sprintf("%s:search:%s:", prefix, c)
}

// SearchResult is one merged hit.
type SearchResult struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	LocalID  string   `json:"localId"`
	Category Category `json:"sourceCategory"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Details  Details  `json:"details"`
}

// NamespacedID joins a source name and its local id. Local ids are only
// unique within one source.
func NamespacedID(source, localID string) string {
	return source + ":" + localID
}

// AggregatedResponse is the caller-facing search result page.
type AggregatedResponse struct {
	Query         string         `json:"query"`
	Category      Category       `json:"category"`
	Page          int            `json:"page"`
	Results       []SearchResult `json:"results"`
	TotalEstimate int            `json:"totalEstimate"`
	HasMore       bool           `json:"hasMore"`
	Partial       bool           `json:"partial"`
	FailedSources []string       `json:"failedSources,omitempty"`
}

// SearchAnalytics is an append-only record of one search.
type SearchAnalytics struct {
	ID            string    `json:"id"`
	Query         string    `json:"query"`
	Category      Category  `json:"category"`
	Timestamp     time.Time `json:"timestamp"`
	ResultCount   int       `json:"resultCount"`
	Caller        string    `json:"caller"`
	UserAgent     string    `json:"userAgent,omitempty"`
	DurationMs    int64     `json:"durationMs"`
	CacheHit      bool      `json:"cacheHit"`
	Partial       bool      `json:"partial"`
	FailedSources []string  `json:"failedSources,omitempty"`
}
