package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CountsAndExposes(t *testing.T) {
	reg := NewRegistry()

	reg.CheckoutOutcomes.WithLabelValues("succeeded").Inc()
	reg.CheckoutOutcomes.WithLabelValues("verification_failed").Add(2)
	reg.StorageFailures.WithLabelValues("write").Inc()
	reg.GatewayCalls.WithLabelValues("create_order", "ok").Inc()
	reg.BreakerState.Set(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(reg.CheckoutOutcomes.WithLabelValues("succeeded")))
	assert.Equal(t, float64(2), testutil.ToFloat64(reg.CheckoutOutcomes.WithLabelValues("verification_failed")))

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `storefront_cart_storage_failures_total{op="write"} 1`)
	assert.Contains(t, string(body), `storefront_gateway_requests_total{operation="create_order",result="ok"} 1`)
	assert.Contains(t, string(body), `storefront_gateway_breaker_state 2`)
}
