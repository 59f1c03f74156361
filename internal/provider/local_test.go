package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/index"
)

type downIndex struct{}

func (downIndex) Index(context.Context, index.Document) error { return index.ErrUnavailable }

func (downIndex) Delete(context.Context, index.Kind, string) error { return index.ErrUnavailable }

func (downIndex) Search(context.Context, index.Query) (*index.Hits, error) {
	return nil, index.ErrUnavailable
}

func TestLocalSearch(t *testing.T) {
	idx := index.NewMemoryIndex()
	ctx := context.Background()
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, idx.Index(ctx, index.Document{ID: "u1", Kind: index.KindUser, Title: "nolan", Popularity: 900, CreatedAt: created}))
	require.NoError(t, idx.Index(ctx, index.Document{ID: "p1", Kind: index.KindPost, Title: "nolan marathon", AuthorID: "u1", Popularity: 12, CreatedAt: created}))

	local := NewLocal(idx)

	page, err := local.Search(ctx, Query{Text: "nolan", Category: domain.CategoryUser})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].Details.User)
	assert.Equal(t, 900, page.Items[0].Details.User.Followers)

	page, err = local.Search(ctx, Query{Text: "nolan", Category: domain.CategoryPost})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].Details.Post)
	assert.Equal(t, "u1", page.Items[0].Details.Post.AuthorID)
	assert.Equal(t, created, page.Items[0].Details.Post.CreatedAt)
}

func TestLocalSearchFailures(t *testing.T) {
	_, err := NewLocal(index.NewMemoryIndex()).Search(context.Background(), Query{Text: "x", Category: domain.CategoryMovie})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = NewLocal(downIndex{}).Search(context.Background(), Query{Text: "x", Category: domain.CategoryPost})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, index.ErrUnavailable)
}
