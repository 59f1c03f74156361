package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
)

// Catalog searches a movie and series catalog.
//
//	GET {base}/search?query=<q>&type=movie|series&limit=<n>
//	{"total_results": 1, "results": [{"id": "tt1375666", "title": "Inception",
//	  "year": 2010, "rating": 8.8, "votes": 2400000, "genres": ["Sci-Fi"],
//	  "poster": "https://...", "url": "https://..."}]}
type Catalog struct {
	*httpProvider
}

// NewCatalog returns a catalog adapter. client may be nil.
func NewCatalog(cfg Config, client *http.Client) *Catalog {
	return &Catalog{httpProvider: newHTTPProvider(cfg, client)}
}

func (c *Catalog) Search(ctx context.Context, q Query) (*Page, error) {
	kind := "movie"
	if q.Category == domain.CategorySeries {
		kind = "series"
	}

	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("type", kind)
	params.Set("limit", strconv.Itoa(limitOf(q, c.cfg.MaxResults)))

	doc, err := c.getJSON(ctx, "/search", params)
	if err != nil {
		return nil, err
	}
	results, err := c.requireArray(doc, "results")
	if err != nil {
		return nil, err
	}

	page := &Page{Total: int(doc.Get("total_results").Int())}
	for _, r := range results.Array() {
		id := r.Get("id").String()
		if id == "" {
			continue
		}
		d := &domain.MovieDetails{
			Kind:   kind,
			Year:   yearOf(r.Get("year")),
			Rating: r.Get("rating").Float(),
			Votes:  int(r.Get("votes").Int()),
			Genres: stringList(r.Get("genres")),
			Link:   r.Get("url").String(),
		}
		page.Items = append(page.Items, Item{
			ID:       id,
			Title:    r.Get("title").String(),
			Subtitle: movieSubtitle(d),
			ImageURL: r.Get("poster").String(),
			Details:  domain.Details{Movie: d},
		})
	}
	return page, nil
}

func movieSubtitle(d *domain.MovieDetails) string {
	switch {
	case d.Year > 0 && d.Rating > 0:
		return fmt.Sprintf("%d • %.1f/10", d.Year, d.Rating)
	case d.Year > 0:
		return strconv.Itoa(d.Year)
	case d.Rating > 0:
		return fmt.Sprintf("%.1f/10", d.Rating)
	}
	return ""
}

func limitOf(q Query, fallback int) int {
	if q.Limit > 0 {
		return q.Limit
	}
	return fallback
}
