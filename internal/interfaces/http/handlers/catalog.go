// internal/interfaces/http/handlers/catalog.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/catalog"
)

// CatalogHandler serves the product grid
type CatalogHandler struct {
	catalog catalog.Provider
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(provider catalog.Provider) *CatalogHandler {
	return &CatalogHandler{catalog: provider}
}

// ListProducts handles GET /products?q=&min=&max=
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	minPrice, err := priceParam(c, "min")
	if err != nil {
		badRequest(c, "Invalid price filter min", err)
		return
	}
	maxPrice, err := priceParam(c, "max")
	if err != nil {
		badRequest(c, "Invalid price filter max", err)
		return
	}

	filter := catalog.Filter{Query: c.Query("q"), MinPrice: minPrice, MaxPrice: maxPrice}

	products := filter.Apply(h.catalog.List())
	c.JSON(http.StatusOK, gin.H{
		"message": "Products retrieved successfully",
		"data": gin.H{
			"products": products,
			"count":    len(products),
		},
	})
}

func priceParam(c *gin.Context, name string) (*decimal.Decimal, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
