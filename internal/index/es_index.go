package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
)

// ESIndex stores documents in one Elasticsearch index, keyed <kind>:<id>.
type ESIndex struct {
	client *elasticsearch.Client
	index  string
}

// NewESIndex wraps an existing client.
func NewESIndex(client *elasticsearch.Client, indexName string) *ESIndex {
	return &ESIndex{client: client, index: indexName}
}

var esMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":         map[string]interface{}{"type": "keyword"},
			"kind":       map[string]interface{}{"type": "keyword"},
			"title":      map[string]interface{}{"type": "text"},
			"subtitle":   map[string]interface{}{"type": "text"},
			"body":       map[string]interface{}{"type": "text"},
			"image_url":  map[string]interface{}{"type": "keyword", "index": false},
			"author_id":  map[string]interface{}{"type": "keyword"},
			"popularity": map[string]interface{}{"type": "integer"},
			"created_at": map[string]interface{}{"type": "date"},
		},
	},
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (r *ESIndex) EnsureIndex(ctx context.Context) error {
	res, err := r.client.Indices.Exists([]string{r.index}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: check index: %v", ErrUnavailable, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: check index: %s", ErrUnavailable, res.Status())
	}

	data, err := json.Marshal(esMapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = r.client.Indices.Create(
		r.index,
		r.client.Indices.Create.WithContext(ctx),
		r.client.Indices.Create.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return fmt.Errorf("%w: create index: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: create index: %s", ErrUnavailable, res.String())
	}
	return nil
}

func (r *ESIndex) Index(ctx context.Context, doc Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(docKey(doc.Kind, doc.ID)),
		r.client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("%w: index document: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: index document: %s", ErrUnavailable, res.String())
	}
	return nil
}

func (r *ESIndex) Delete(ctx context.Context, kind Kind, id string) error {
	res, err := r.client.Delete(
		r.index,
		docKey(kind, id),
		r.client.Delete.WithContext(ctx),
		r.client.Delete.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("%w: delete document: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: delete document: %s", ErrUnavailable, res.String())
	}
	return nil
}

func (r *ESIndex) Search(ctx context.Context, q Query) (*Hits, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	body := map[string]interface{}{
		"from":             offset,
		"size":             limit,
		"track_total_hits": true,
		"track_scores":     true,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  q.Text,
						"fields": []string{"title^3", "subtitle^2", "body"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"kind": string(q.Kind)},
				},
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"popularity": "desc"},
			map[string]interface{}{"created_at": "desc"},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: elasticsearch error: %s", ErrUnavailable, res.String())
	}

	var result esResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}

	hits := &Hits{Items: make([]Hit, 0, len(result.Hits.Hits)), Total: result.Hits.Total.Value}
	for _, h := range result.Hits.Hits {
		var doc Document
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			continue
		}
		var score float64
		if h.Score != nil {
			score = *h.Score
		}
		hits.Items = append(hits.Items, Hit{Document: doc, Score: score})
	}
	return hits, nil
}

// esResponse is the subset of the search response the index reads.
type esResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Score  *float64        `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
