package provider

import (
	"context"
	"fmt"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/index"
)

// LocalName is the source name of in-app results.
const LocalName = "local"

// Local serves the user and post categories from the in-app index.
type Local struct {
	idx index.Index
}

// NewLocal adapts idx.
func NewLocal(idx index.Index) *Local {
	return &Local{idx: idx}
}

func (l *Local) Name() string { return LocalName }

func (l *Local) Search(ctx context.Context, q Query) (*Page, error) {
	kind, ok := index.KindOf(q.Category)
	if !ok {
		return nil, &Error{Provider: LocalName, Message: fmt.Sprintf("category %s is not indexed locally", q.Category)}
	}

	hits, err := l.idx.Search(ctx, index.Query{Text: q.Text, Kind: kind, Limit: q.Limit})
	if err != nil {
		return nil, Wrap(LocalName, err)
	}

	page := &Page{Items: make([]Item, 0, len(hits.Items)), Total: hits.Total}
	for _, h := range hits.Items {
		page.Items = append(page.Items, Item{
			ID:       h.ID,
			Title:    h.Title,
			Subtitle: h.Subtitle,
			ImageURL: h.ImageURL,
			Details:  localDetails(h.Document),
		})
	}
	return page, nil
}

func localDetails(doc index.Document) domain.Details {
	if doc.Kind == index.KindUser {
		return domain.Details{User: &domain.UserDetails{
			Username:  doc.Title,
			Followers: doc.Popularity,
			CreatedAt: doc.CreatedAt,
		}}
	}
	return domain.Details{Post: &domain.PostDetails{
		AuthorID:  doc.AuthorID,
		Likes:     doc.Popularity,
		CreatedAt: doc.CreatedAt,
	}}
}
