// internal/domain/payment/entity.go
package payment

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrGatewayRejected means the backend answered with an error field
	ErrGatewayRejected = errors.New("payment gateway rejected the request")
	// ErrMalformedResponse means the backend answer could not be understood
	ErrMalformedResponse = errors.New("malformed payment gateway response")
	// ErrGatewayUnavailable means the call never produced a usable answer
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// CreateOrderRequest asks the backend to open a gateway order
type CreateOrderRequest struct {
	Amount        decimal.Decimal
	Receipt       string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// Order carries the widget parameters returned by create-order
type Order struct {
	Key      string `json:"key"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	OrderID  string `json:"order_id"`
}

// createOrderPayload is the create-order wire format
type createOrderPayload struct {
	AmountINR     json.Number `json:"amountINR"`
	Receipt       string      `json:"receipt"`
	CustomerName  string      `json:"customerName,omitempty"`
	CustomerEmail string      `json:"customerEmail,omitempty"`
	CustomerPhone string      `json:"customerPhone,omitempty"`
}

type createOrderResponse struct {
	Key      string          `json:"key"`
	Amount   json.Number     `json:"amount"`
	Currency string          `json:"currency"`
	OrderID  string          `json:"orderId"`
	Error    json.RawMessage `json:"error"`
}

type verifyResponse struct {
	OK *bool `json:"ok"`
}
