// internal/domain/cart/entity.go
package cart

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/catalog"
)

// StorageKey is the key the cart record is persisted under
const StorageKey = "cart_v1"

// ErrStorage marks a persistence read or write failure. It never
// escapes a mutation; the store reports it through the failure hook.
var ErrStorage = errors.New("cart storage failure")

// Entries maps product id to a quantity of at least one
type Entries map[string]int

// LineItem is a cart entry joined with its product at read time
type LineItem struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// LineTotal is the unrounded price of the line
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}
