package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
)

func TestCatalogSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "inception", r.URL.Query().Get("query"))
		assert.Equal(t, "movie", r.URL.Query().Get("type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_results": 2, "results": [
			{"id": "tt1375666", "title": "Inception", "year": 2010, "rating": 8.8, "votes": 2400000,
			 "genres": ["Sci-Fi", "Action"], "poster": "https://img/inception.jpg"},
			{"id": "", "title": "dropped"},
			{"id": "tt5295894", "title": "Inception: The Cobol Job", "year": "2010-12-07"}
		]}`))
	}))
	defer srv.Close()

	c := NewCatalog(Config{Name: "imdb", BaseURL: srv.URL + "/", APIKey: "secret"}, nil)
	page, err := c.Search(context.Background(), Query{Text: "inception", Category: domain.CategoryMovie})
	require.NoError(t, err)

	assert.Equal(t, "imdb", c.Name())
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)

	first := page.Items[0]
	assert.Equal(t, "tt1375666", first.ID)
	assert.Equal(t, "Inception", first.Title)
	assert.Equal(t, "2010 • 8.8/10", first.Subtitle)
	assert.Equal(t, "https://img/inception.jpg", first.ImageURL)
	require.NotNil(t, first.Details.Movie)
	assert.Equal(t, []string{"Sci-Fi", "Action"}, first.Details.Movie.Genres)
	assert.Equal(t, 2400000, first.Details.Movie.Votes)

	assert.Equal(t, 2010, page.Items[1].Details.Movie.Year)
}

func TestCatalogSeriesKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "series", r.URL.Query().Get("type"))
		_, _ = w.Write([]byte(`{"results": [{"id": "tt0903747", "title": "Breaking Bad"}]}`))
	}))
	defer srv.Close()

	page, err := NewCatalog(Config{Name: "imdb", BaseURL: srv.URL}, nil).
		Search(context.Background(), Query{Text: "breaking bad", Category: domain.CategorySeries})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "series", page.Items[0].Details.Movie.Kind)
}

func TestRetailSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dune", r.URL.Query().Get("q"))
		assert.Equal(t, "books", r.URL.Query().Get("category"))
		_, _ = w.Write([]byte(`{"total": 1, "results": [{"id": "B000FC1PJI", "title": "Dune",
			"author": "Frank Herbert", "rating": 4.6, "reviews": 1200, "year": 1965,
			"genre": "Science Fiction", "image": "https://img/dune.jpg"}]}`))
	}))
	defer srv.Close()

	page, err := NewRetail(Config{Name: "amazon", BaseURL: srv.URL}, nil).
		Search(context.Background(), Query{Text: "dune", Category: domain.CategoryBook})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	it := page.Items[0]
	assert.Equal(t, "Frank Herbert • 4.6/5", it.Subtitle)
	require.NotNil(t, it.Details.Book)
	assert.Equal(t, 1965, it.Details.Book.Year)
	rating, ok := it.Details.Rating()
	assert.True(t, ok)
	assert.InDelta(t, 9.2, rating, 1e-9)
}

func TestMusicSearchWithClientCredentials(t *testing.T) {
	var tokenCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			tokenCalls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok-1", "token_type": "bearer", "expires_in": 3600,
			})
		case "/v1/search":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			assert.Equal(t, "track,album", r.URL.Query().Get("type"))
			_, _ = w.Write([]byte(`{
				"tracks": {"total": 10, "items": [{"id": "t1", "name": "Time", "popularity": 71,
					"artists": [{"name": "Hans Zimmer"}],
					"album": {"name": "Inception OST", "release_date": "2010-07-16", "images": [{"url": "https://img/t1.jpg"}]}}]},
				"albums": {"total": 5, "items": [{"id": "a1", "name": "Inception OST", "release_date": "2010",
					"artists": [{"name": "Hans Zimmer"}], "images": [{"url": "https://img/a1.jpg"}]}]}
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	m := NewMusic(Config{
		Name:         "spotify",
		BaseURL:      srv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
	})

	for i := 0; i < 2; i++ {
		page, err := m.Search(context.Background(), Query{Text: "inception", Category: domain.CategoryMusic})
		require.NoError(t, err)
		assert.Equal(t, 15, page.Total)
		require.Len(t, page.Items, 2)

		track := page.Items[0]
		assert.Equal(t, "Time", track.Title)
		assert.Equal(t, "Hans Zimmer • Inception OST", track.Subtitle)
		assert.Equal(t, 2010, track.Details.Track.Year)

		album := page.Items[1]
		assert.Equal(t, "album", album.Details.Track.Kind)
		assert.Equal(t, "Album • Hans Zimmer", album.Subtitle)
	}
	assert.Equal(t, int32(1), tokenCalls.Load(), "token is cached until expiry")
}

func TestHTTPProviderFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
			status: http.StatusBadGateway,
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"results": [`))
			},
			status: http.StatusOK,
		},
		{
			name: "missing results",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"error": "quota"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			page, err := NewRetail(Config{Name: "amazon", BaseURL: srv.URL}, nil).
				Search(context.Background(), Query{Text: "dune"})
			assert.Nil(t, page)
			require.ErrorIs(t, err, ErrUnavailable)

			var pe *Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "amazon", pe.Provider)
			assert.Equal(t, tt.status, pe.StatusCode)
		})
	}
}

func TestHTTPProviderErrorBodyKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("a", maxErrorBytes-1) + "çok fazla istek"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, body, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewRetail(Config{Name: "amazon", BaseURL: srv.URL}, nil).Search(context.Background(), Query{Text: "dune"})
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.True(t, utf8.ValidString(pe.Message))
	assert.Equal(t, strings.Repeat("a", maxErrorBytes-1), pe.Message)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab", truncate("abç", 3), "two-byte rune does not fit")
	assert.Equal(t, "abç", truncate("abçd", 4))
	assert.Equal(t, "", truncate("日本", 2))
}

func TestHTTPProviderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewCatalog(Config{Name: "imdb", BaseURL: srv.URL}, nil).Search(ctx, Query{Text: "x"})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFuncWrapsErrors(t *testing.T) {
	cause := errors.New("index offline")
	p := NewFunc("local", func(context.Context, Query) (*Page, error) { return nil, cause })

	_, err := p.Search(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)

	p = NewFunc("empty", func(context.Context, Query) (*Page, error) { return nil, nil })
	page, err := p.Search(context.Background(), Query{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestRegistryOrder(t *testing.T) {
	noop := func(context.Context, Query) (*Page, error) { return &Page{}, nil }
	a, b := NewFunc("amazon", noop), NewFunc("bookshop", noop)

	r := NewRegistry()
	r.Register(a, domain.CategoryBook)
	r.Register(b, domain.CategoryBook, domain.CategoryMusic)

	got := r.For(domain.CategoryBook)
	require.Len(t, got, 2)
	assert.Equal(t, "amazon", got[0].Name())
	assert.Equal(t, "bookshop", got[1].Name())

	assert.Empty(t, r.For(domain.CategoryMovie))
	assert.Equal(t, []domain.Category{domain.CategoryBook, domain.CategoryMusic}, r.Categories())
}
