// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/storefront"
)

// statusFor maps domain errors onto HTTP status codes and stable error codes
func statusFor(err error) (int, string) {
	var ce *checkout.Error
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusUnprocessableEntity, "empty_cart"
	case errors.Is(err, checkout.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		return http.StatusConflict, "checkout_in_progress"
	case errors.Is(err, checkout.ErrInvalidTransition), errors.Is(err, payment.ErrNoPendingPayment):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, storefront.ErrUnknownProduct):
		return http.StatusNotFound, "unknown_product"
	case errors.As(err, &ce):
		return http.StatusBadGateway, string(ce.Reason)
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func respondError(c *gin.Context, err error, data any) {
	status, code := statusFor(err)
	body := gin.H{
		"error": err.Error(),
		"code":  code,
	}
	if data != nil {
		body["data"] = data
	}
	if status >= http.StatusInternalServerError {
		c.Error(err)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}
