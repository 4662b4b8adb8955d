// Package product serves catalog lookups, category enumeration, and stats.
package product

import (
	"fmt"

	"github.com/emporia-search/emporia/internal/domain"
)

// Catalog is the catalog store contract.
type Catalog interface {
	Get(id string) (domain.Product, bool)
	Len() int
	Categories() []string
}

// Detail is a product in its API shape: id plus meta/filter views.
type Detail struct {
	ID     string
	Meta   domain.ProductMeta
	Filter domain.ProductFilter
}

// Stats describes the deployment: catalog size and embedding geometry.
type Stats struct {
	VectorCount   int
	TotalElements int
	Dim           int
	SpaceType     string
}

// Service answers product, category, and stats queries from the catalog.
type Service struct {
	catalog Catalog
	vector  domain.VectorConfig
}

// New creates a product service.
func New(catalog Catalog, vector domain.VectorConfig) *Service {
	return &Service{catalog: catalog, vector: vector}
}

// Get returns product detail by id.
func (s *Service) Get(id string) (Detail, error) {
	p, ok := s.catalog.Get(id)
	if !ok {
		return Detail{}, fmt.Errorf("product %q: %w", id, domain.ErrNotFound)
	}
	return Detail{ID: p.ID, Meta: p.Meta(), Filter: p.Filter()}, nil
}

// Categories returns the static category enumeration.
func (s *Service) Categories() []string {
	return s.catalog.Categories()
}

// Stats reports catalog size and embedding dimensionality. Served from the
// local catalog rather than the index, matching the answer even when the
// index service is down.
func (s *Service) Stats() Stats {
	n := s.catalog.Len()
	return Stats{
		VectorCount:   n,
		TotalElements: n,
		Dim:           s.vector.Dimensions,
		SpaceType:     s.vector.SpaceType,
	}
}
