package provider

import (
	"sync"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
)

// Registry routes a category to its ordered providers. Registration order
// is source priority.
type Registry struct {
	mu         sync.RWMutex
	byCategory map[domain.Category][]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byCategory: make(map[domain.Category][]Provider)}
}

// Register appends p to every listed category.
func (r *Registry) Register(p Provider, categories ...domain.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range categories {
		r.byCategory[c] = append(r.byCategory[c], p)
	}
}

// For returns the providers of c in priority order.
func (r *Registry) For(c domain.Category) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ps := r.byCategory[c]
	out := make([]Provider, len(ps))
	copy(out, ps)
	return out
}

// Categories lists every category with at least one provider.
func (r *Registry) Categories() []domain.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Category
	for _, c := range domain.Categories {
		if len(r.byCategory[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}
