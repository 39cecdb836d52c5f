// internal/domain/storefront/entity.go
package storefront

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/pricing"
)

// ErrUnknownProduct is returned when a cart change names a product the
// catalog does not carry
var ErrUnknownProduct = errors.New("product not found in catalog")

// LineView is one cart line as shown to the customer
type LineView struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	ImageAlt  string          `json:"image_alt"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// View is the full cart page
type View struct {
	SessionID string            `json:"session_id"`
	Items     []LineView        `json:"items"`
	ItemCount int               `json:"item_count"`
	Breakdown pricing.Breakdown `json:"breakdown"`
	Checkout  checkout.Status   `json:"checkout"`
}
