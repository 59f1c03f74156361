package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
)

// Music searches a streaming catalog for tracks and albums.
//
//	GET {base}/v1/search?q=<q>&type=track,album&limit=<n>
//	{"tracks": {"total": 1, "items": [{"id": "...", "name": "...", "popularity": 71,
//	  "artists": [{"name": "..."}], "album": {"name": "...", "release_date": "2010-07-16",
//	  "images": [{"url": "https://..."}]}}]},
//	 "albums": {"total": 1, "items": [{"id": "...", "name": "...", "release_date": "2010",
//	  "artists": [{"name": "..."}], "images": [{"url": "https://..."}]}]}}
//
// With ClientID, ClientSecret and TokenURL set, bearer tokens come from the
// client-credentials grant and are refreshed on expiry. Otherwise APIKey is
// sent as a static bearer token.
type Music struct {
	*httpProvider
}

// NewMusic returns a music adapter.
func NewMusic(cfg Config) *Music {
	var client *http.Client
	switch {
	case cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.TokenURL != "":
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		client = cc.Client(context.Background())
		cfg.APIKey = ""
	case cfg.APIKey != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey})
		client = oauth2.NewClient(context.Background(), ts)
		cfg.APIKey = ""
	}
	return &Music{httpProvider: newHTTPProvider(cfg, client)}
}

func (m *Music) Search(ctx context.Context, q Query) (*Page, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("type", "track,album")
	params.Set("limit", strconv.Itoa(limitOf(q, m.cfg.MaxResults)))

	doc, err := m.getJSON(ctx, "/v1/search", params)
	if err != nil {
		return nil, err
	}
	tracks, err := m.requireArray(doc, "tracks.items")
	if err != nil {
		return nil, err
	}

	page := &Page{Total: int(doc.Get("tracks.total").Int() + doc.Get("albums.total").Int())}

	for _, t := range tracks.Array() {
		id := t.Get("id").String()
		if id == "" {
			continue
		}
		d := &domain.TrackDetails{
			Kind:       "track",
			Artist:     firstArtist(t),
			Album:      t.Get("album.name").String(),
			Year:       yearOf(t.Get("album.release_date")),
			Popularity: int(t.Get("popularity").Int()),
			Genres:     stringList(t.Get("genres")),
			Link:       t.Get("external_urls.spotify").String(),
		}
		page.Items = append(page.Items, Item{
			ID:       id,
			Title:    t.Get("name").String(),
			Subtitle: joinNonEmpty(" • ", d.Artist, d.Album),
			ImageURL: t.Get("album.images.0.url").String(),
			Details:  domain.Details{Track: d},
		})
	}

	// Albums are optional in the payload.
	for _, a := range doc.Get("albums.items").Array() {
		id := a.Get("id").String()
		if id == "" {
			continue
		}
		d := &domain.TrackDetails{
			Kind:       "album",
			Artist:     firstArtist(a),
			Album:      a.Get("name").String(),
			Year:       yearOf(a.Get("release_date")),
			Popularity: int(a.Get("popularity").Int()),
			Genres:     stringList(a.Get("genres")),
			Link:       a.Get("external_urls.spotify").String(),
		}
		page.Items = append(page.Items, Item{
			ID:       id,
			Title:    d.Album,
			Subtitle: joinNonEmpty(" • ", "Album", d.Artist),
			ImageURL: a.Get("images.0.url").String(),
			Details:  domain.Details{Track: d},
		})
	}
	return page, nil
}

func firstArtist(r gjson.Result) string {
	return r.Get("artists.0.name").String()
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
