package index

import (
	"context"
	"sort"
	"sync"
)

// Field weights used for scoring.
const (
	weightTitle    = 3
	weightSubtitle = 2
	weightBody     = 1
)

type memoryDoc struct {
	doc   Document
	terms map[string]int // term -> weighted frequency
}

// MemoryIndex is an in-process inverted index. Writers build the complete
// entry before taking the lock, so readers never observe a partial document.
type MemoryIndex struct {
	mu       sync.RWMutex
	docs     map[string]*memoryDoc
	postings map[string]map[string]struct{}
}

// NewMemoryIndex returns an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		docs:     make(map[string]*memoryDoc),
		postings: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryIndex) Index(_ context.Context, doc Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	entry := &memoryDoc{doc: doc, terms: make(map[string]int)}
	for _, f := range []struct {
		text   string
		weight int
	}{
		{doc.Title, weightTitle},
		{doc.Subtitle, weightSubtitle},
		{doc.Body, weightBody},
	} {
		for _, t := range tokenize(f.text) {
			entry.terms[t] += f.weight
		}
	}

	key := docKey(doc.Kind, doc.ID)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(key)
	m.docs[key] = entry
	for t := range entry.terms {
		p, ok := m.postings[t]
		if !ok {
			p = make(map[string]struct{})
			m.postings[t] = p
		}
		p[key] = struct{}{}
	}
	return nil
}

func (m *MemoryIndex) Delete(_ context.Context, kind Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(docKey(kind, id))
	return nil
}

func (m *MemoryIndex) removeLocked(key string) {
	old, ok := m.docs[key]
	if !ok {
		return
	}
	for t := range old.terms {
		if p := m.postings[t]; p != nil {
			delete(p, key)
			if len(p) == 0 {
				delete(m.postings, t)
			}
		}
	}
	delete(m.docs, key)
}

// Search ranks documents of q.Kind by the weighted count of query terms they
// contain. Ties go to the more popular, then the newer, then the lower id.
func (m *MemoryIndex) Search(_ context.Context, q Query) (*Hits, error) {
	terms := tokenize(q.Text)
	if len(terms) == 0 {
		return &Hits{}, nil
	}

	m.mu.RLock()
	scores := make(map[string]int)
	for _, t := range terms {
		for key := range m.postings[t] {
			d := m.docs[key]
			if d.doc.Kind != q.Kind {
				continue
			}
			scores[key] += d.terms[t]
		}
	}
	hits := make([]Hit, 0, len(scores))
	for key, s := range scores {
		hits = append(hits, Hit{Document: m.docs[key].doc, Score: float64(s)})
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Popularity != b.Popularity {
			return a.Popularity > b.Popularity
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	total := len(hits)
	offset, limit := q.Offset, q.Limit
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return &Hits{Items: hits[offset:end], Total: total}, nil
}

// Len returns the number of indexed documents.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
