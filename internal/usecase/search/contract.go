package search

import (
	"context"

	"github.com/emporia-search/emporia/internal/domain"
	"github.com/emporia-search/emporia/internal/index"
)

// IndexSearcher is the protocol adapter contract used by the search service.
type IndexSearcher interface {
	Search(ctx context.Context, vector []float32, k int, category string) (index.SearchResponse, error)
	GetVectorByID(ctx context.Context, id string) ([]float32, error)
}

// CatalogReader looks up products for enrichment.
type CatalogReader interface {
	Get(id string) (domain.Product, bool)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
