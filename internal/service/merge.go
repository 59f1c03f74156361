package service

import (
	"sort"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/provider"
)

// sourcePage is one successful provider answer, in source priority order.
type sourcePage struct {
	source string
	page   *provider.Page
}

// merge interleaves the sources by rank: every source's first hit, then
// every source's second hit, and so on, with sources in priority order.
// Ids are namespaced by source and the first occurrence wins.
func merge(category domain.Category, pages []sourcePage) []domain.SearchResult {
	longest := 0
	for _, sp := range pages {
		if n := len(sp.page.Items); n > longest {
			longest = n
		}
	}

	seen := make(map[string]struct{})
	out := make([]domain.SearchResult, 0)
	for rank := 0; rank < longest; rank++ {
		for _, sp := range pages {
			if rank >= len(sp.page.Items) {
				continue
			}
			it := sp.page.Items[rank]
			id := domain.NamespacedID(sp.source, it.ID)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			out = append(out, domain.SearchResult{
				ID:       id,
				Source:   sp.source,
				LocalID:  it.ID,
				Category: category,
				Title:    it.Title,
				Subtitle: it.Subtitle,
				ImageURL: it.ImageURL,
				Details:  it.Details,
			})
		}
	}
	return out
}

func applyFilters(results []domain.SearchResult, f domain.Filters) []domain.SearchResult {
	if f.Empty() {
		return results
	}
	out := results[:0]
	for _, r := range results {
		if f.Matches(r.Details) {
			out = append(out, r)
		}
	}
	return out
}

// applySort reorders in place. Relevance keeps merge order; the others are
// stable so equal keys keep it too.
func applySort(results []domain.SearchResult, by domain.SortBy) {
	switch by {
	case domain.SortRecent:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Details.Recency().After(results[j].Details.Recency())
		})
	case domain.SortPopular:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Details.Popularity() > results[j].Details.Popularity()
		})
	}
}

// paginate returns page p (1-based) of n items and whether more follow.
// Pages past the end are empty; p is compared before multiplying so a huge
// page number cannot overflow.
func paginate(results []domain.SearchResult, p, n int) ([]domain.SearchResult, bool) {
	if p < 1 || n < 1 || len(results) == 0 || p-1 > (len(results)-1)/n {
		return []domain.SearchResult{}, false
	}
	start := (p - 1) * n
	end := min(start+n, len(results))
	page := make([]domain.SearchResult, end-start)
	copy(page, results[start:end])
	return page, len(results) > end
}
