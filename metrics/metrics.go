// Package metrics holds the Prometheus collectors for the pricing and booking
// services and the HTTP instrumentation middleware.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	// Pricing metrics
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charter_quotes_total",
			Help: "Total number of price computations by result",
		},
		[]string{"result"},
	)

	PriceClampedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "charter_price_clamped_total",
			Help: "Total number of computations where discounts were clamped at zero",
		},
	)

	// Cancellation metrics
	RefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charter_refunds_total",
			Help: "Total number of cancellations by refund tier",
		},
		[]string{"tier"},
	)

	RefundAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "charter_refund_amount",
			Help:    "Refund amount distribution",
			Buckets: []float64{0, 1000, 5000, 10000, 25000, 50000, 100000, 250000},
		},
	)

	// Booking metrics
	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charter_booking_transitions_total",
			Help: "Total number of booking status transitions",
		},
		[]string{"to"},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Quote results
const (
	ResultOK          = "ok"
	ResultProvisional = "provisional"
	ResultRejected    = "rejected"
	ResultError       = "error"
)

// RecordQuote counts one price computation.
func RecordQuote(result string, clamped bool) {
	QuotesTotal.WithLabelValues(result).Inc()
	if clamped {
		PriceClampedTotal.Inc()
	}
}

// RecordRefund counts a cancellation and observes the refunded amount.
func RecordRefund(tier string, amount decimal.Decimal) {
	RefundsTotal.WithLabelValues(tier).Inc()
	f, _ := amount.Float64()
	RefundAmount.Observe(f)
}

// RecordTransition counts a booking entering status.
func RecordTransition(status string) {
	BookingTransitions.WithLabelValues(status).Inc()
}

// Middleware instruments HTTP handlers by chi route pattern, so
// /api/bookings/{id} is one series regardless of id.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
