package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/metrics"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *metrics.Registry) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	reg := metrics.NewRegistry()
	cfg := config.GatewayConfig{
		BaseURL:         srv.URL + "/",
		CreateOrderPath: "/api/razorpay/create-order",
		VerifyPath:      "/api/razorpay/verify",
		Timeout:         2 * time.Second,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}
	return NewClient(cfg, logger.Discard().WithField("component", "payment"), reg), reg
}

func TestCreateOrder_Success(t *testing.T) {
	var got map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/razorpay/create-order", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"key":"rzp_test_key","amount":15447,"currency":"INR","orderId":"order_1"}`))
	})

	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:        decimal.RequireFromString("154.47"),
		Receipt:       "rcpt_abc",
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
		CustomerPhone: "9999999999",
	})

	require.NoError(t, err)
	assert.Equal(t, &Order{Key: "rzp_test_key", Amount: 15447, Currency: "INR", OrderID: "order_1"}, order)
	assert.Equal(t, 154.47, got["amountINR"])
	assert.Equal(t, "rcpt_abc", got["receipt"])
	assert.Equal(t, "Asha", got["customerName"])
	assert.Equal(t, "asha@example.com", got["customerEmail"])
	assert.Equal(t, "9999999999", got["customerPhone"])
}

func TestCreateOrder_OmitsEmptyContact(t *testing.T) {
	var raw []byte
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"key":"k","amount":100,"currency":"INR","orderId":"o"}`))
	})

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: decimal.NewFromInt(1), Receipt: "r"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amountINR":1.00,"receipt":"r"}`, string(raw))
}

func TestCreateOrder_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"error field", http.StatusOK, `{"error":"x"}`, ErrGatewayRejected},
		{"error object", http.StatusBadRequest, `{"error":{"code":"BAD"}}`, ErrGatewayRejected},
		{"bare 4xx", http.StatusBadRequest, `{}`, ErrGatewayRejected},
		{"5xx with error field", http.StatusInternalServerError, `{"error":"razorpay down"}`, ErrGatewayRejected},
		{"5xx without body", http.StatusBadGateway, ``, ErrGatewayUnavailable},
		{"not json", http.StatusOK, `<html>`, ErrMalformedResponse},
		{"missing order id", http.StatusOK, `{"key":"k","amount":1,"currency":"INR"}`, ErrMalformedResponse},
		{"fractional amount", http.StatusOK, `{"key":"k","amount":1.5,"currency":"INR","orderId":"o"}`, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			order, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: decimal.NewFromInt(10), Receipt: "r"})
			assert.Nil(t, order)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateOrder_ErrorFieldMessageSurfaces(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"amount too small"}`))
	})

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: decimal.NewFromInt(1), Receipt: "r"})
	assert.ErrorContains(t, err, "amount too small")
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr error
	}{
		{"ok", http.StatusOK, `{"ok":true}`, true, nil},
		{"not ok", http.StatusOK, `{"ok":false}`, false, nil},
		{"missing ok", http.StatusOK, `{}`, false, ErrMalformedResponse},
		{"garbage", http.StatusOK, `ok`, false, ErrMalformedResponse},
		{"rejected", http.StatusBadRequest, `{"ok":false}`, false, ErrGatewayRejected},
		{"server error", http.StatusInternalServerError, ``, false, ErrGatewayUnavailable},
	}

	payload := json.RawMessage(`{"razorpay_payment_id":"pay_1","razorpay_order_id":"order_1","razorpay_signature":"sig"}`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var forwarded []byte
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/razorpay/verify", r.URL.Path)
				forwarded, _ = io.ReadAll(r.Body)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			ok, err := client.Verify(context.Background(), payload)
			assert.Equal(t, tt.want, ok)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, string(payload), string(forwarded))
		})
	}
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	client, reg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.Verify(ctx, json.RawMessage(`{}`))
		require.ErrorIs(t, err, ErrGatewayUnavailable)
	}
	_, err := client.Verify(ctx, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.ErrorContains(t, err, "circuit breaker is open")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	count, err := metricCount(reg, "storefront_gateway_request_seconds")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
	assert.Equal(t, float64(2), testutil.ToFloat64(reg.GatewayCalls.WithLabelValues("verify", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.GatewayCalls.WithLabelValues("verify", "rejected")))
	assert.Equal(t, float64(2), testutil.ToFloat64(reg.BreakerState), "breaker reported open")
}

func TestClient_BreakerStartsClosed(t *testing.T) {
	client, reg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})

	ok, err := client.Verify(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, float64(0), testutil.ToFloat64(reg.BreakerState))
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.GatewayCalls.WithLabelValues("verify", "ok")))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(config.GatewayConfig{BaseURL: url, CreateOrderPath: "/c", Timeout: time.Second},
		logger.Discard().WithField("component", "payment"), nil)

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: decimal.NewFromInt(1), Receipt: "r"})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func metricCount(reg *metrics.Registry, name string) (uint64, error) {
	families, err := reg.Gatherer().Gather()
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetHistogram().GetSampleCount()
		}
	}
	return total, nil
}
