package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
)

// Retail searches a book retailer.
//
//	GET {base}/search?q=<q>&category=books&limit=<n>
//	{"total": 1, "results": [{"id": "B000FC1PJI", "title": "Dune",
//	  "author": "Frank Herbert", "rating": 4.6, "reviews": 1200,
//	  "year": 1965, "genre": "Science Fiction", "image": "https://..."}]}
type Retail struct {
	*httpProvider
}

// NewRetail returns a retail adapter. client may be nil.
func NewRetail(cfg Config, client *http.Client) *Retail {
	return &Retail{httpProvider: newHTTPProvider(cfg, client)}
}

func (r *Retail) Search(ctx context.Context, q Query) (*Page, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("category", "books")
	params.Set("limit", strconv.Itoa(limitOf(q, r.cfg.MaxResults)))

	doc, err := r.getJSON(ctx, "/search", params)
	if err != nil {
		return nil, err
	}
	results, err := r.requireArray(doc, "results")
	if err != nil {
		return nil, err
	}

	page := &Page{Total: int(doc.Get("total").Int())}
	for _, it := range results.Array() {
		id := it.Get("id").String()
		if id == "" {
			continue
		}
		d := &domain.BookDetails{
			Author:  it.Get("author").String(),
			Year:    yearOf(it.Get("year")),
			Rating:  it.Get("rating").Float(),
			Reviews: int(it.Get("reviews").Int()),
			Genre:   it.Get("genre").String(),
			Link:    it.Get("url").String(),
		}
		page.Items = append(page.Items, Item{
			ID:       id,
			Title:    it.Get("title").String(),
			Subtitle: bookSubtitle(d),
			ImageURL: it.Get("image").String(),
			Details:  domain.Details{Book: d},
		})
	}
	return page, nil
}

func bookSubtitle(d *domain.BookDetails) string {
	switch {
	case d.Author != "" && d.Rating > 0:
		return fmt.Sprintf("%s • %.1f/5", d.Author, d.Rating)
	case d.Author != "":
		return d.Author
	case d.Rating > 0:
		return fmt.Sprintf("%.1f/5", d.Rating)
	}
	return ""
}
