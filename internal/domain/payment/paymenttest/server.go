// Package paymenttest runs a fake payment backend for tests.
package paymenttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/metrics"
)

const (
	CreateOrderPath = "/api/razorpay/create-order"
	VerifyPath      = "/api/razorpay/verify"
	ScriptPath      = "/v1/checkout.js"
	Script          = "window.Razorpay = function(){}"
)

// Server answers create-order, verify and widget script requests
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	createError string
	verifyOK    bool
	orders      []map[string]any
	verified    []json.RawMessage
}

// NewServer starts a backend that accepts every order and payment
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{verifyOK: true}

	mux := http.NewServeMux()
	mux.HandleFunc(CreateOrderPath, s.createOrder)
	mux.HandleFunc(VerifyPath, s.verify)
	mux.HandleFunc(ScriptPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, Script)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// FailOrders makes create-order answer {"error": msg}; empty restores success
func (s *Server) FailOrders(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createError = msg
}

// VerifyOK sets the verify answer
func (s *Server) VerifyOK(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyOK = ok
}

// Orders returns the decoded create-order bodies received so far
func (s *Server) Orders() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.orders...)
}

// Verified returns the verify bodies received so far
func (s *Server) Verified() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage(nil), s.verified...)
}

// GatewayConfig points a payment client at the server
func (s *Server) GatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:         s.URL,
		CreateOrderPath: CreateOrderPath,
		VerifyPath:      VerifyPath,
		Timeout:         2 * time.Second,
		BreakerFailures: 100,
		BreakerTimeout:  time.Second,
	}
}

// Client returns a payment client for the server; reg may be nil
func (s *Server) Client(reg *metrics.Registry) *payment.Client {
	return payment.NewClient(s.GatewayConfig(), logger.Discard().WithField("component", "payment"), reg)
}

// Widget returns a hosted widget loading its script from the server
func (s *Server) Widget() *payment.HostedWidget {
	return payment.NewHostedWidget(s.URL+ScriptPath, s.Server.Client(), logger.Discard().WithField("component", "widget"))
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.orders = append(s.orders, body)
	n := len(s.orders)
	failure := s.createError
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failure != "" {
		json.NewEncoder(w).Encode(map[string]string{"error": failure})
		return
	}

	amount, _ := decimal.NewFromString(fmt.Sprint(body["amountINR"]))
	json.NewEncoder(w).Encode(map[string]any{
		"key":      "rzp_test_key",
		"amount":   amount.Shift(2).IntPart(),
		"currency": "INR",
		"orderId":  fmt.Sprintf("order_%d", n),
	})
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.verified = append(s.verified, body)
	ok := s.verifyOK
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": ok})
}
