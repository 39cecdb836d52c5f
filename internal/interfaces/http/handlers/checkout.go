// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/storefront"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// AttemptHistory lists settled checkout attempts
type AttemptHistory interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]checkout.AttemptRecord, error)
}

// CheckoutHandler drives the checkout flow of the caller's session
type CheckoutHandler struct {
	sessions *storefront.Manager
	widget   *payment.HostedWidget
	history  AttemptHistory
}

// NewCheckoutHandler creates a new checkout handler; history may be nil
func NewCheckoutHandler(sessions *storefront.Manager, widget *payment.HostedWidget, history AttemptHistory) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		widget:   widget,
		history:  history,
	}
}

// GetStatus handles GET /checkout
func (h *CheckoutHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout status retrieved",
		"data":    h.coordinator(c).Status(),
	})
}

// Start handles POST /checkout
func (h *CheckoutHandler) Start(c *gin.Context) {
	coord := h.coordinator(c)
	if err := coord.Start(); err != nil {
		respondError(c, err, coord.Status())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout started, contact details required",
		"data":    coord.Status(),
	})
}

// CancelContact handles DELETE /checkout/contact
func (h *CheckoutHandler) CancelContact(c *gin.Context) {
	coord := h.coordinator(c)
	if err := coord.CancelContact(); err != nil {
		respondError(c, err, coord.Status())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout cancelled",
		"data":    coord.Status(),
	})
}

// SubmitContact handles POST /checkout/contact and opens the payment widget
func (h *CheckoutHandler) SubmitContact(c *gin.Context) {
	var contact checkout.Contact
	if err := c.ShouldBindJSON(&contact); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	coord := h.coordinator(c)
	attempt, err := coord.SubmitContact(c.Request.Context(), contact)
	if err != nil {
		respondError(c, err, coord.Status())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Payment order created",
		"data": gin.H{
			"receipt": attempt.Receipt,
			"widget":  attempt.WidgetOptions(),
			"status":  coord.Status(),
		},
	})
}

// CompletePayment handles POST /checkout/payment with the widget's
// payment response and answers once verification has settled
func (h *CheckoutHandler) CompletePayment(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil || !json.Valid(payload) {
		badRequest(c, "Payment response must be JSON", err)
		return
	}

	coord := h.coordinator(c)
	attempt := coord.Current()
	if attempt == nil || coord.Status().State != checkout.StateAwaitingPayment {
		respondError(c, checkout.ErrInvalidTransition, coord.Status())
		return
	}
	if err := h.widget.Complete(attempt.Order().OrderID, payload); err != nil {
		respondError(c, err, coord.Status())
		return
	}

	h.settle(c, coord, attempt)
}

// Dismiss handles POST /checkout/dismiss
func (h *CheckoutHandler) Dismiss(c *gin.Context) {
	coord := h.coordinator(c)
	attempt := coord.Current()
	if attempt == nil || coord.Status().State != checkout.StateAwaitingPayment {
		respondError(c, checkout.ErrInvalidTransition, coord.Status())
		return
	}
	if err := h.widget.Dismiss(attempt.Order().OrderID); err != nil {
		respondError(c, err, coord.Status())
		return
	}

	h.settle(c, coord, attempt)
}

// Acknowledge handles POST /checkout/acknowledge
func (h *CheckoutHandler) Acknowledge(c *gin.Context) {
	coord := h.coordinator(c)
	if err := coord.Acknowledge(); err != nil {
		respondError(c, err, coord.Status())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout result acknowledged",
		"data":    coord.Status(),
	})
}

// WidgetScript handles GET /checkout/widget.js
func (h *CheckoutHandler) WidgetScript(c *gin.Context) {
	script, ok := h.widget.Script()
	if !ok {
		if err := h.widget.Load(c.Request.Context()); err != nil {
			c.Error(err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Payment widget unavailable",
				"code":  string(checkout.ReasonWidgetUnavailable),
			})
			return
		}
		script, _ = h.widget.Script()
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", script)
}

// ListAttempts handles GET /checkout/attempts
func (h *CheckoutHandler) ListAttempts(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Checkout history is not enabled",
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	attempts, err := h.history.ListBySession(c.Request.Context(), middleware.GetSessionIDFromContext(c), limit)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve checkout history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout history retrieved",
		"data": gin.H{
			"attempts": attempts,
			"count":    len(attempts),
		},
	})
}

// settle waits for the attempt; a request deadline yields 202 with the
// in-flight status
func (h *CheckoutHandler) settle(c *gin.Context, coord *checkout.Coordinator, attempt *checkout.Attempt) {
	st, err := attempt.Wait(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusAccepted, gin.H{
			"message": "Payment is being verified",
			"data":    coord.Status(),
		})
		return
	}

	if st.State == checkout.StateFailed {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": st.Error,
			"code":  string(st.Reason),
			"data":  st,
		})
		return
	}

	msg := "Payment verified"
	if st.Attempt != nil && st.Attempt.Outcome == checkout.OutcomeDismissed {
		msg = "Payment dismissed"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": msg,
		"data":    st,
	})
}

func (h *CheckoutHandler) coordinator(c *gin.Context) *checkout.Coordinator {
	return h.sessions.Session(c.Request.Context(), middleware.GetSessionIDFromContext(c)).Checkout()
}
