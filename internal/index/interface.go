// Package index is the full-text index over in-app entities (users and
// posts) that serves the local search categories.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
)

var (
	// ErrUnavailable wraps every backend failure.
	ErrUnavailable = errors.New("index unavailable")
	// ErrInvalidDocument rejects a document without id or with an unknown kind.
	ErrInvalidDocument = errors.New("invalid index document")
)

// Kind is the entity type of a document.
type Kind string

const (
	KindUser Kind = "user"
	KindPost Kind = "post"
)

// KindOf maps a local search category to its document kind.
func KindOf(c domain.Category) (Kind, bool) {
	switch c {
	case domain.CategoryUser:
		return KindUser, true
	case domain.CategoryPost:
		return KindPost, true
	}
	return "", false
}

// Category is the search category a kind is served under.
func (k Kind) Category() domain.Category {
	return domain.Category(k)
}

// Document is one indexed entity.
type Document struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Title      string    `json:"title"`
	Subtitle   string    `json:"subtitle,omitempty"`
	Body       string    `json:"body,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	AuthorID   string    `json:"author_id,omitempty"`
	Popularity int       `json:"popularity"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks the fields every backend relies on.
func (d Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDocument)
	}
	if d.Kind != KindUser && d.Kind != KindPost {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDocument, d.Kind)
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidDocument)
	}
	return nil
}

// Query selects documents of one kind matching Text.
type Query struct {
	Text   string
	Kind   Kind
	Offset int
	Limit  int
}

// Hit is a matched document with its relevance score.
type Hit struct {
	Document
	Score float64 `json:"score"`
}

// Hits is one page of results in rank order. Total counts all matches.
type Hits struct {
	Items []Hit
	Total int
}

// Index is implemented by the Elasticsearch and in-memory backends.
type Index interface {
	// Index inserts or fully replaces the document with the same kind and id.
	Index(ctx context.Context, doc Document) error
	// Delete removes a document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, kind Kind, id string) error
	Search(ctx context.Context, q Query) (*Hits, error)
}

const defaultLimit = 20

func docKey(kind Kind, id string) string {
	return string(kind) + ":" + id
}

// tokenize splits normalized text into searchable terms.
func tokenize(s string) []string {
	return strings.FieldsFunc(domain.NormalizeText(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
