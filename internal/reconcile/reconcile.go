// Package reconcile joins decoded index hits with catalog attributes and
// applies the secondary filters the index service is not trusted with.
package reconcile

import (
	"github.com/emporia-search/emporia/internal/domain"
	"github.com/emporia-search/emporia/internal/index"
)

// CatalogReader is the catalog lookup contract.
type CatalogReader interface {
	Get(id string) (domain.Product, bool)
}

// Enrich joins hits with catalog products, preserving input order among
// survivors. Hits with no catalog entry are dropped: the index may still
// reference ids removed from the catalog, which is expected churn, not an
// error. No default record is ever injected for an unknown id.
func Enrich(hits []index.Hit, catalog CatalogReader) []domain.EnrichedResult {
	results := make([]domain.EnrichedResult, 0, len(hits))
	for _, h := range hits {
		p, ok := catalog.Get(h.ID)
		if !ok {
			continue
		}
		results = append(results, domain.EnrichedResult{
			Score:  h.Score,
			ID:     h.ID,
			Meta:   p.Meta(),
			Filter: p.Filter(),
		})
	}
	return results
}

// ApplyFilters keeps a result iff minPrice <= price <= maxPrice and
// rating >= minRating. Runs after enrichment so correctness never depends on
// the upstream filter, even if the service silently ignored it.
func ApplyFilters(results []domain.EnrichedResult, f domain.SearchFilters) []domain.EnrichedResult {
	f = f.Normalized()

	kept := make([]domain.EnrichedResult, 0, len(results))
	for _, r := range results {
		if r.Filter.Price < f.MinPrice || r.Filter.Price > f.MaxPrice {
			continue
		}
		if r.Filter.Rating < f.MinRating {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
