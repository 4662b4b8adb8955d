package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/emporia-search/emporia/internal/domain"
	"github.com/emporia-search/emporia/internal/reconcile"
)

const (
	defaultSearchK  = 10
	defaultSimilarK = 5
)

// Service runs the search pipeline: embed, index query, enrich, filter.
type Service struct {
	idx     IndexSearcher
	catalog CatalogReader
	embed   Embedder
}

// New creates a search service.
func New(idx IndexSearcher, catalog CatalogReader, embed Embedder) *Service {
	return &Service{idx: idx, catalog: catalog, embed: embed}
}

// Output is a search result set with an optional warning annotation
// (set when the index answered with an empty body).
type Output struct {
	Results []domain.EnrichedResult
	Warning string
}

// Search embeds query text, queries the index (category filter pushed
// upstream), enriches hits from the catalog, and applies price/rating
// filters client-side. k <= 0 falls back to the default.
func (s *Service) Search(ctx context.Context, query string, k int, filters domain.SearchFilters) (Output, error) {
	if strings.TrimSpace(query) == "" {
		return Output{}, fmt.Errorf("query is required: %w", domain.ErrValidation)
	}
	if k <= 0 {
		k = defaultSearchK
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return Output{}, fmt.Errorf("vectorize query: %w", err)
	}

	resp, err := s.idx.Search(ctx, emb.Embedding, k, filters.Category)
	if err != nil {
		return Output{}, fmt.Errorf("index search: %w", err)
	}

	results := reconcile.Enrich(resp.Hits, s.catalog)
	results = reconcile.ApplyFilters(results, filters)

	return Output{Results: results, Warning: resp.Warning}, nil
}

// Similar finds products similar to the one with the given id, excluding the
// seed itself. Queries for k+1 to compensate for the expected self-match; if
// near-duplicates crowd the self-match out of the window, the result may
// contain k items with none excluded, which is fine.
func (s *Service) Similar(ctx context.Context, id string, k int) ([]domain.EnrichedResult, error) {
	if id == "" {
		return nil, fmt.Errorf("product id is required: %w", domain.ErrValidation)
	}
	if k <= 0 {
		k = defaultSimilarK
	}

	vec, err := s.idx.GetVectorByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get vector %q: %w", id, err)
	}

	resp, err := s.idx.Search(ctx, vec, k+1, "")
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	enriched := reconcile.Enrich(resp.Hits, s.catalog)

	similar := make([]domain.EnrichedResult, 0, k)
	for _, r := range enriched {
		if r.ID == id {
			continue
		}
		similar = append(similar, r)
		if len(similar) == k {
			break
		}
	}
	return similar, nil
}
