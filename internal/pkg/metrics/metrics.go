// internal/pkg/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the storefront's prometheus collectors
type Registry struct {
	reg *prometheus.Registry

	CheckoutOutcomes *prometheus.CounterVec
	StorageFailures  *prometheus.CounterVec
	GatewayCalls     *prometheus.CounterVec
	GatewayLatency   *prometheus.HistogramVec
	BreakerState     prometheus.Gauge
	ActiveSessions   prometheus.Gauge
}

// NewRegistry creates and registers all collectors
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_outcomes_total",
		Help: "Settled checkout attempts by outcome.",
	}, []string{"outcome"})
	storage := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_storage_failures_total",
		Help: "Cart persistence failures by operation.",
	}, []string{"op"})
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_gateway_requests_total",
		Help: "Payment gateway calls by operation and result.",
	}, []string{"operation", "result"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_gateway_request_seconds",
		Help:    "Payment gateway call latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "result"})
	breaker := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_gateway_breaker_state",
		Help: "Payment gateway breaker state: 0 closed, 1 half-open, 2 open.",
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_active_sessions",
		Help: "Sessions currently held in memory.",
	})

	r.MustRegister(outcomes, storage, calls, latency, breaker, sessions)
	return &Registry{
		reg:              r,
		CheckoutOutcomes: outcomes,
		StorageFailures:  storage,
		GatewayCalls:     calls,
		GatewayLatency:   latency,
		BreakerState:     breaker,
		ActiveSessions:   sessions,
	}
}

// Handler exposes the registry in the prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry for tests
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
