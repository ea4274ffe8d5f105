package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	OracleRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_requests_total",
			Help: "Total number of extraction oracle calls by contract and outcome",
		},
		[]string{"contract", "outcome"},
	)
	OracleRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_request_duration_seconds",
			Help:    "Extraction oracle call duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"contract"},
	)

	PollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_cycles_total",
			Help: "Total number of mailbox poll cycles by outcome",
		},
		[]string{"outcome"},
	)
	MessagesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_messages_total",
			Help: "Total number of inbound messages by processing outcome",
		},
		[]string{"outcome"},
	)

	ComparisonRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comparison_requests_total",
			Help: "Total number of comparison requests by cache outcome",
		},
		[]string{"outcome"},
	)

	CompletenessHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "proposal_completeness",
			Help:    "Distribution of proposal completeness scores (0-100)",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

// InitMetrics registers all Prometheus collectors once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(OracleRequestsTotal)
	prometheus.MustRegister(OracleRequestDuration)
	prometheus.MustRegister(PollCyclesTotal)
	prometheus.MustRegister(MessagesProcessedTotal)
	prometheus.MustRegister(ComparisonRequestsTotal)
	prometheus.MustRegister(CompletenessHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveOracleCall records one oracle invocation.
func ObserveOracleCall(contract, outcome string, dur time.Duration) {
	OracleRequestsTotal.WithLabelValues(contract, outcome).Inc()
	OracleRequestDuration.WithLabelValues(contract).Observe(dur.Seconds())
}

// ObserveCompleteness records the completeness score of an ingested proposal.
func ObserveCompleteness(score int) {
	if score >= 0 && score <= 100 {
		CompletenessHistogram.Observe(float64(score))
	}
}
