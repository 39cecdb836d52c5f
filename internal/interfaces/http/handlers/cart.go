// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/storefront"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	sessions *storefront.Manager
}

// NewCartHandler creates a new cart handler
func NewCartHandler(sessions *storefront.Manager) *CartHandler {
	return &CartHandler{sessions: sessions}
}

// AddItemRequest is the body of POST /cart/items
type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// UpdateItemRequest is the body of PUT /cart/items/:id
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	s := h.session(c)
	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    s.View(),
	})
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	s := h.session(c)
	if err := s.AddItem(c.Request.Context(), req.ProductID); err != nil {
		respondError(c, err, s.View())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart",
		"data":    s.View(),
	})
}

// UpdateItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	s := h.session(c)
	if err := s.SetQuantity(c.Request.Context(), c.Param("id"), *req.Quantity); err != nil {
		respondError(c, err, s.View())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart updated",
		"data":    s.View(),
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	s := h.session(c)
	if err := s.Clear(c.Request.Context()); err != nil {
		respondError(c, err, s.View())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
		"data":    s.View(),
	})
}

func (h *CartHandler) session(c *gin.Context) *storefront.Session {
	return h.sessions.Session(c.Request.Context(), middleware.GetSessionIDFromContext(c))
}
