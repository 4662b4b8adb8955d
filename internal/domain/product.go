package domain

// Product is a catalog entry, immutable after load.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Rating      float64 `json:"rating"`
	Stock       int     `json:"stock"`
}

// ProductMeta is the display view of a product.
type ProductMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
}

// ProductFilter is the filterable-attributes view of a product.
type ProductFilter struct {
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"`
	Stock    int     `json:"stock"`
	Category string  `json:"category"`
}

// Placeholder values for products loaded with absent optional fields.
const (
	untitledProduct = "Untitled Product"
	noDescription   = "No description available"
	uncategorized   = "Product"
)

// Meta builds the display view, filling absent optional fields with placeholders.
func (p Product) Meta() ProductMeta {
	m := ProductMeta{
		Title:       p.Title,
		Description: p.Description,
		Image:       p.Image,
		Brand:       p.Brand,
		Category:    p.Category,
	}
	if m.Title == "" {
		m.Title = untitledProduct
	}
	if m.Description == "" {
		m.Description = noDescription
	}
	if m.Category == "" {
		m.Category = uncategorized
	}
	return m
}

// Filter builds the filterable view.
func (p Product) Filter() ProductFilter {
	f := ProductFilter{
		Price:    p.Price,
		Rating:   p.Rating,
		Stock:    p.Stock,
		Category: p.Category,
	}
	if f.Category == "" {
		f.Category = uncategorized
	}
	return f
}

// EnrichedResult is an index hit joined with catalog attributes.
// Constructed per request, never persisted.
type EnrichedResult struct {
	Score  float64       `json:"score"`
	ID     string        `json:"id"`
	Meta   ProductMeta   `json:"meta"`
	Filter ProductFilter `json:"filter"`
}

// CategoryAll is the sentinel category meaning "no category filter".
const CategoryAll = "All"

// DefaultMaxPrice is the effectively-unbounded upper price bound.
const DefaultMaxPrice = 10000

// SearchFilters are the secondary filter criteria applied after enrichment.
// Category is the one criterion also pushed upstream into the index search.
type SearchFilters struct {
	MinPrice  float64
	MaxPrice  float64
	MinRating float64
	Category  string
}

// Normalized fills unset bounds: MaxPrice <= 0 means unbounded.
func (f SearchFilters) Normalized() SearchFilters {
	if f.MinPrice < 0 {
		f.MinPrice = 0
	}
	if f.MaxPrice <= 0 {
		f.MaxPrice = DefaultMaxPrice
	}
	if f.MinRating < 0 {
		f.MinRating = 0
	}
	return f
}
