package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request throughput and latency per route.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewHTTPMetrics registers the HTTP metrics on the provided registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route, and status code.",
	}, []string{"method", "route", "status"})
	reg.MustRegister(duration, requests)
	return &HTTPMetrics{
		duration: duration,
		requests: requests,
	}
}

// ObserveRequest records one completed request.
func (h *HTTPMetrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	if h == nil {
		return
	}
	if h.duration != nil {
		h.duration.WithLabelValues(normalizeLabel(method), normalizeLabel(route)).Observe(elapsed.Seconds())
	}
	if h.requests != nil {
		h.requests.WithLabelValues(normalizeLabel(method), normalizeLabel(route), normalizeLabel(status)).Inc()
	}
}

// CheckoutMetrics tracks order creation outcomes.
type CheckoutMetrics struct {
	created       prometheus.Counter
	stockConflict prometheus.Counter
	cancelled     prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created successfully.",
	})
	stockConflict := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_stock_conflict_total",
		Help: "Order attempts rejected for insufficient stock.",
	})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled with stock restored.",
	})
	reg.MustRegister(created, stockConflict, cancelled)
	return &CheckoutMetrics{
		created:       created,
		stockConflict: stockConflict,
		cancelled:     cancelled,
	}
}

// IncCreated increments the created-order counter.
func (c *CheckoutMetrics) IncCreated() {
	if c == nil || c.created == nil {
		return
	}
	c.created.Inc()
}

// IncStockConflict increments the insufficient-stock counter.
func (c *CheckoutMetrics) IncStockConflict() {
	if c == nil || c.stockConflict == nil {
		return
	}
	c.stockConflict.Inc()
}

// IncCancelled increments the cancelled-order counter.
func (c *CheckoutMetrics) IncCancelled() {
	if c == nil || c.cancelled == nil {
		return
	}
	c.cancelled.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
