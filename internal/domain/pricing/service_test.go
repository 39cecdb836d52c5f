package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
)

func item(price string, qty int) cart.LineItem {
	return cart.LineItem{
		Product:  catalog.Product{ID: price, Price: decimal.RequireFromString(price)},
		Quantity: qty,
	}
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestPrice_Empty(t *testing.T) {
	b := Price(nil)

	assertMoney(t, "0", b.Subtotal)
	assertMoney(t, "0", b.Shipping)
	assertMoney(t, "0", b.Tax)
	assertMoney(t, "0", b.Total)
	assert.True(t, b.Equal(Price([]cart.LineItem{})))
}

func TestPrice_Scenarios(t *testing.T) {
	tests := []struct {
		name                           string
		items                          []cart.LineItem
		subtotal, shipping, tax, total string
	}{
		{
			name:     "single bag pays flat shipping",
			items:    []cart.LineItem{item("129.00", 1)},
			subtotal: "129.00", shipping: "9.99", tax: "15.48", total: "154.47",
		},
		{
			name:     "bag and headphones ship free",
			items:    []cart.LineItem{item("129.00", 1), item("199.00", 1)},
			subtotal: "328.00", shipping: "0", tax: "39.36", total: "367.36",
		},
		{
			name:     "exactly at threshold still pays",
			items:    []cart.LineItem{item("75.00", 2)},
			subtotal: "150.00", shipping: "9.99", tax: "18.00", total: "177.99",
		},
		{
			name:     "one cent over threshold ships free",
			items:    []cart.LineItem{item("150.01", 1)},
			subtotal: "150.01", shipping: "0", tax: "18.00", total: "168.01",
		},
		{
			name:     "small cart",
			items:    []cart.LineItem{item("19.00", 1)},
			subtotal: "19.00", shipping: "9.99", tax: "2.28", total: "31.27",
		},
		{
			name:     "no intermediate rounding",
			items:    []cart.LineItem{item("0.333", 3)},
			subtotal: "1.00", shipping: "9.99", tax: "0.12", total: "11.11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Price(tt.items)
			assertMoney(t, tt.subtotal, b.Subtotal)
			assertMoney(t, tt.shipping, b.Shipping)
			assertMoney(t, tt.tax, b.Tax)
			assertMoney(t, tt.total, b.Total)
		})
	}
}

func TestPrice_IsPure(t *testing.T) {
	items := []cart.LineItem{item("129.00", 2), item("25.00", 3)}
	first := Price(items)
	second := Price([]cart.LineItem{item("129.00", 2), item("25.00", 3)})

	assert.True(t, first.Equal(second))
	assert.Equal(t, first, Price(items))
	assert.Equal(t, 2, items[0].Quantity)
}
