// internal/domain/catalog/entity.go
package catalog

import "github.com/shopspring/decimal"

// Product is a read-only catalog record
type Product struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	ImageAlt  string          `json:"image_alt,omitempty"`
	Inventory int             `json:"inventory"`
}

// InStock reports whether the product can still be offered for adding.
// The cart never enforces this; it is a display hint.
func (p Product) InStock() bool {
	return p.Inventory > 0
}
