// Package catalog holds the in-memory product lookup table.
// The store is the single source of truth for display metadata and
// filterable attributes; the index service only contributes relevance.
package catalog

import (
	"encoding/json"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/emporia-search/emporia/internal/domain"
)

// Store is an immutable-after-load product lookup table.
// Safe for unsynchronized concurrent reads.
type Store struct {
	products   map[string]domain.Product
	ordered    []domain.Product
	categories []string
}

// New creates a store from a product slice. Later duplicates of an id win,
// matching load order of the source file.
func New(products []domain.Product) *Store {
	byID := make(map[string]domain.Product, len(products))
	ordered := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if _, dup := byID[p.ID]; !dup {
			ordered = append(ordered, p)
		}
		byID[p.ID] = p
	}
	for i, p := range ordered {
		ordered[i] = byID[p.ID]
	}

	seen := map[string]struct{}{domain.CategoryAll: {}}
	var rest []string
	for _, p := range byID {
		cat := p.Filter().Category
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		rest = append(rest, cat)
	}
	sort.Strings(rest)
	categories := append([]string{domain.CategoryAll}, rest...)

	return &Store{products: byID, ordered: ordered, categories: categories}
}

// Load reads a JSON array of products from path.
// A missing or unreadable source degrades to an empty catalog, not a startup failure.
func Load(path string, logger *zap.Logger) *Store {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("catalog source unavailable, starting with empty catalog",
			zap.String("path", path),
			zap.Error(err),
		)
		return New(nil)
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		logger.Warn("catalog source unreadable, starting with empty catalog",
			zap.String("path", path),
			zap.Error(err),
		)
		return New(nil)
	}

	logger.Info("catalog loaded",
		zap.String("path", path),
		zap.Int("products", len(products)),
	)
	return New(products)
}

// Get looks up a product by id.
func (s *Store) Get(id string) (domain.Product, bool) {
	p, ok := s.products[id]
	return p, ok
}

// Len returns the number of products in the catalog.
func (s *Store) Len() int {
	return len(s.products)
}

// Categories returns the deduplicated, sorted category list,
// including the "All" sentinel.
func (s *Store) Categories() []string {
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

// Products returns all products in load order. The slice is a copy;
// the store itself stays immutable.
func (s *Store) Products() []domain.Product {
	out := make([]domain.Product, len(s.ordered))
	copy(out, s.ordered)
	return out
}
