package index

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newESIndex(t *testing.T, handler http.HandlerFunc) *ESIndex {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewESIndex(client, "faveit-local")
}

func TestESIndexSearch(t *testing.T) {
	idx := newESIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/faveit-local/_search", r.URL.Path)

		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.EqualValues(t, 5, body["from"])
		assert.EqualValues(t, 10, body["size"])
		assert.Contains(t, string(raw), `"kind":"post"`)
		assert.Contains(t, string(raw), `"title^3"`)

		_, _ = w.Write([]byte(`{"hits": {"total": {"value": 42}, "hits": [
			{"_id": "post:1", "_score": 2.5, "_source": {"id": "1", "kind": "post", "title": "Inception night", "popularity": 7}},
			{"_id": "post:2", "_score": null, "_source": {"id": "2", "kind": "post", "title": "Dreams"}}
		]}}`))
	})

	hits, err := idx.Search(context.Background(), Query{Text: "inception", Kind: KindPost, Offset: 5, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 42, hits.Total)
	require.Len(t, hits.Items, 2)
	assert.Equal(t, "Inception night", hits.Items[0].Title)
	assert.Equal(t, 2.5, hits.Items[0].Score)
	assert.Zero(t, hits.Items[1].Score)
}

func TestESIndexSearchError(t *testing.T) {
	idx := newESIndex(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"type": "cluster_block_exception"}}`))
	})

	_, err := idx.Search(context.Background(), Query{Text: "x", Kind: KindUser})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestESIndexIndexAndDelete(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	idx := newESIndex(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			raw, _ := io.ReadAll(r.Body)
			assert.True(t, strings.Contains(string(raw), `"title":"hello"`))
			assert.Equal(t, "wait_for", r.URL.Query().Get("refresh"))
			_, _ = w.Write([]byte(`{"result": "created"}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"result": "not_found"}`))
		}
	})
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, Document{ID: "9", Kind: KindUser, Title: "hello"}))
	require.NoError(t, idx.Delete(ctx, KindUser, "9"), "deleting an absent document is a no-op")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"PUT /faveit-local/_doc/user:9", "DELETE /faveit-local/_doc/user:9"}, calls)
}

func TestESIndexEnsureIndex(t *testing.T) {
	var created atomic.Bool
	idx := newESIndex(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created.Store(true)
			raw, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(raw), `"kind":{"type":"keyword"}`)
			_, _ = w.Write([]byte(`{"acknowledged": true}`))
		}
	})

	require.NoError(t, idx.EnsureIndex(context.Background()))
	assert.True(t, created.Load())
}
