// Package observability holds the Prometheus collectors and the metrics
// endpoint for the processing core.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Authorization metrics
	authorizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authorizations_total",
		Help: "Total number of authorization decisions",
	}, []string{
		"status",        // approved, declined, error
		"response_code", // 00=approved, 14=invalid card, 54=expired card
	})

	// Settlement metrics
	settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_total",
		Help: "Total number of settlement runs",
	}, []string{
		"outcome", // settled, empty, conflict, error
	})

	settlementTransactions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_transactions_total",
		Help: "Total number of transactions claimed by settlements",
	})

	// Fraud detection metrics
	fraudFlagsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fraud_flags_total",
		Help: "Total number of cards flagged by the velocity detector",
	})

	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"path", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method"})
)

// RecordAuthorization records one authorization decision
func RecordAuthorization(status, responseCode string) {
	authorizationsTotal.WithLabelValues(status, responseCode).Inc()
}

// RecordSettlement records one settlement run and the transactions it claimed
func RecordSettlement(outcome string, transactionCount int) {
	settlementsTotal.WithLabelValues(outcome).Inc()
	if transactionCount > 0 {
		settlementTransactions.Add(float64(transactionCount))
	}
}

// RecordFraudFlag records one flagged card
func RecordFraudFlag() {
	fraudFlagsTotal.Inc()
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware records request counts and durations per route
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		httpRequestDuration.WithLabelValues(r.URL.Path, r.Method).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}
