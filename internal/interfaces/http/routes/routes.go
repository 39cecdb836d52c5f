// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// Handlers groups the API handlers mounted under /api/v1
type Handlers struct {
	Catalog  *handlers.CatalogHandler
	Cart     *handlers.CartHandler
	Checkout *handlers.CheckoutHandler
}

// SetupRoutes mounts every storefront route on rg
func SetupRoutes(rg *gin.RouterGroup, h Handlers) {
	SetupProductRoutes(rg, h.Catalog)

	// cart and checkout are scoped to the visitor's session
	session := rg.Group("")
	session.Use(middleware.Session())
	SetupCartRoutes(session, h.Cart)
	SetupCheckoutRoutes(session, h.Checkout)
}

// SetupProductRoutes sets up catalog routes
func SetupProductRoutes(rg *gin.RouterGroup, h *handlers.CatalogHandler) {
	products := rg.Group("/products")
	{
		products.GET("", h.ListProducts)
	}
}

// SetupCartRoutes sets up cart routes
func SetupCartRoutes(rg *gin.RouterGroup, h *handlers.CartHandler) {
	cart := rg.Group("/cart")
	{
		cart.GET("", h.GetCart)
		cart.DELETE("", h.ClearCart)
		cart.POST("/items", h.AddItem)
		cart.PUT("/items/:id", h.UpdateItem)
	}
}

// SetupCheckoutRoutes sets up checkout routes
func SetupCheckoutRoutes(rg *gin.RouterGroup, h *handlers.CheckoutHandler) {
	checkout := rg.Group("/checkout")
	{
		checkout.GET("", h.GetStatus)
		checkout.POST("", h.Start)
		checkout.POST("/contact", h.SubmitContact)
		checkout.DELETE("/contact", h.CancelContact)
		checkout.POST("/payment", h.CompletePayment)
		checkout.POST("/dismiss", h.Dismiss)
		checkout.POST("/acknowledge", h.Acknowledge)
		checkout.GET("/widget.js", h.WidgetScript)
		checkout.GET("/attempts", h.ListAttempts)
	}
}
