// internal/domain/catalog/service.go
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Provider supplies the ordered product list
type Provider interface {
	List() []Product
}

// Static is a fixed, immutable catalog
type Static struct {
	products []Product
	byID     map[string]int
}

// NewStatic copies products into an immutable catalog
func NewStatic(products []Product) *Static {
	s := &Static{
		products: make([]Product, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	copy(s.products, products)
	for i, p := range s.products {
		s.byID[p.ID] = i
	}
	return s
}

// List returns a copy of the products in catalog order
func (s *Static) List() []Product {
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// Get looks up a product by id
func (s *Static) Get(id string) (Product, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Product{}, false
	}
	return s.products[i], true
}

// Filter narrows the storefront grid
type Filter struct {
	Query    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Apply returns the products matching f, keeping catalog order
func (f Filter) Apply(products []Product) []Product {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if query != "" && !strings.Contains(strings.ToLower(p.Title), query) {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Sample is the storefront's built-in catalog
func Sample() *Static {
	return NewStatic([]Product{
		{ID: "p1", Title: "Classic Leather Bag", Price: decimal.RequireFromString("129.00"), ImageAlt: "Leather bag", Inventory: 6},
		{ID: "p2", Title: "Minimalist Watch", Price: decimal.RequireFromString("89.00"), ImageAlt: "Watch", Inventory: 10},
		{ID: "p3", Title: "Running Sneakers", Price: decimal.RequireFromString("99.00"), ImageAlt: "Sneakers", Inventory: 4},
		{ID: "p4", Title: "Noise-Cancelling Headphones", Price: decimal.RequireFromString("199.00"), ImageAlt: "Headphones", Inventory: 3},
		{ID: "p5", Title: "Organic Cotton T-Shirt", Price: decimal.RequireFromString("25.00"), ImageAlt: "T-Shirt", Inventory: 24},
		{ID: "p6", Title: "Smartphone Stand", Price: decimal.RequireFromString("19.00"), ImageAlt: "Phone stand", Inventory: 50},
	})
}
