// internal/domain/pricing/service.go
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/cart"
)

var (
	// FreeShippingThreshold is exclusive: a subtotal must exceed it
	FreeShippingThreshold = decimal.NewFromInt(150)
	// FlatShipping applies to any non-empty cart at or under the threshold
	FlatShipping = decimal.RequireFromString("9.99")
	// TaxRate applies to the subtotal only
	TaxRate = decimal.RequireFromString("0.12")
)

// Breakdown is the price of a cart. It is always derived, never stored.
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Equal compares two breakdowns by value
func (b Breakdown) Equal(o Breakdown) bool {
	return b.Subtotal.Equal(o.Subtotal) &&
		b.Shipping.Equal(o.Shipping) &&
		b.Tax.Equal(o.Tax) &&
		b.Total.Equal(o.Total)
}

// Price computes the breakdown for items. Line totals are summed exactly
// and rounding to cents happens only on the outputs.
func Price(items []cart.LineItem) Breakdown {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}

	shipping := shippingFor(subtotal)
	tax := subtotal.Mul(TaxRate).Round(2)
	total := subtotal.Add(shipping).Add(tax).Round(2)

	return Breakdown{
		Subtotal: subtotal.Round(2),
		Shipping: shipping,
		Tax:      tax,
		Total:    total,
	}
}

func shippingFor(subtotal decimal.Decimal) decimal.Decimal {
	// empty cart
	if subtotal.IsZero() {
		return decimal.Zero
	}
	if subtotal.GreaterThan(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FlatShipping
}
