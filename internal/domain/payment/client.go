// internal/domain/payment/client.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/metrics"
)

// Gateway is the payment backend as seen by checkout
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	Verify(ctx context.Context, payload json.RawMessage) (bool, error)
}

type apiResponse struct {
	status int
	body   []byte
}

// Client calls the payment backend over HTTP
type Client struct {
	baseURL         string
	createOrderPath string
	verifyPath      string
	httpClient      *http.Client
	breaker         *gobreaker.CircuitBreaker[*apiResponse]
	metrics         *metrics.Registry
	log             *logrus.Entry
}

// NewClient creates a gateway client; reg may be nil
func NewClient(cfg config.GatewayConfig, log *logrus.Entry, reg *metrics.Registry) *Client {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	c := &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		createOrderPath: cfg.CreateOrderPath,
		verifyPath:      cfg.VerifyPath,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: reg,
		log:     log,
	}

	c.breaker = gobreaker.NewCircuitBreaker[*apiResponse](gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("payment gateway breaker changed state")
			c.setBreakerState(to)
		},
	})
	c.setBreakerState(gobreaker.StateClosed)

	return c
}

// CreateOrder opens a gateway order for the cart total
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	payload := createOrderPayload{
		AmountINR:     json.Number(req.Amount.StringFixed(2)),
		Receipt:       req.Receipt,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create-order request: %w", err)
	}

	resp, err := c.makeAPICall(ctx, "create_order", c.createOrderPath, body)
	if err != nil {
		return nil, err
	}

	var out createOrderResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("%w: create-order status %d: %v", ErrMalformedResponse, resp.status, err)
	}
	if msg := errorMessage(out.Error); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, msg)
	}
	if resp.status >= 400 {
		return nil, fmt.Errorf("%w: create-order status %d", ErrGatewayRejected, resp.status)
	}
	if out.OrderID == "" || out.Key == "" {
		return nil, fmt.Errorf("%w: create-order response missing key or orderId", ErrMalformedResponse)
	}
	amount, err := out.Amount.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: create-order amount %q", ErrMalformedResponse, out.Amount)
	}

	return &Order{
		Key:      out.Key,
		Amount:   amount,
		Currency: out.Currency,
		OrderID:  out.OrderID,
	}, nil
}

// Verify forwards the widget's payment response verbatim and reports
// whether the backend confirmed it
func (c *Client) Verify(ctx context.Context, payload json.RawMessage) (bool, error) {
	resp, err := c.makeAPICall(ctx, "verify", c.verifyPath, payload)
	if err != nil {
		return false, err
	}
	if resp.status >= 400 {
		return false, fmt.Errorf("%w: verify status %d", ErrGatewayRejected, resp.status)
	}

	var out verifyResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return false, fmt.Errorf("%w: verify: %v", ErrMalformedResponse, err)
	}
	if out.OK == nil {
		return false, fmt.Errorf("%w: verify response has no ok field", ErrMalformedResponse)
	}
	return *out.OK, nil
}

// makeAPICall POSTs body through the breaker. Transport errors and 5xx
// answers count as breaker failures; 4xx answers are returned to the caller.
func (c *Client) makeAPICall(ctx context.Context, operation, path string, body []byte) (*apiResponse, error) {
	start := time.Now()
	resp, err := c.breaker.Execute(func() (*apiResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to make API call: %w", err)
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		out := &apiResponse{status: httpResp.StatusCode, body: respBody}
		if httpResp.StatusCode >= 500 {
			return out, fmt.Errorf("API call failed with status %d", httpResp.StatusCode)
		}
		return out, nil
	})
	c.observe(operation, err, time.Since(start))

	if err != nil {
		c.log.WithError(err).WithField("operation", operation).Warn("payment gateway call failed")
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		if resp != nil && len(resp.body) > 0 {
			// a 5xx may still carry an error field worth surfacing
			var body createOrderResponse
			if json.Unmarshal(resp.body, &body) == nil {
				if msg := errorMessage(body.Error); msg != "" {
					return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, msg)
				}
			}
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrGatewayUnavailable, operation, err)
	}
	return resp, nil
}

func (c *Client) observe(operation string, err error, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	c.metrics.GatewayCalls.WithLabelValues(operation, result).Inc()
	c.metrics.GatewayLatency.WithLabelValues(operation, result).Observe(elapsed.Seconds())
}

// setBreakerState mirrors gobreaker's closed, half-open and open as 0, 1, 2
func (c *Client) setBreakerState(state gobreaker.State) {
	if c.metrics != nil {
		c.metrics.BreakerState.Set(float64(state))
	}
}

// errorMessage extracts the error field, which backends send as a string
// or occasionally as an object
func errorMessage(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if s == "" {
			return ""
		}
		return s
	}
	if bytes.Equal(trimmed, []byte("false")) {
		return ""
	}
	return string(trimmed)
}
