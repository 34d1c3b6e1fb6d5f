// Package metrics provides Prometheus instrumentation for the market data service.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Insert kinds.
const (
	KindDaily      = "daily"
	KindPrediction = "prediction"
)

var (
	// RecordsInserted counts successful inserts by market and kind.
	RecordsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_records_inserted_total",
		Help: "Total number of records inserted",
	}, []string{"collection", "kind"})

	// InsertConflicts counts inserts rejected because the key already exists.
	InsertConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_insert_conflicts_total",
		Help: "Inserts rejected as duplicates",
	}, []string{"collection", "kind"})

	// StoreErrors counts store failures by operation.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_store_errors_total",
		Help: "Store operations that failed",
	}, []string{"op"})

	// UnknownMarketRejections counts requests with an unresolvable token.
	UnknownMarketRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketdata_unknown_market_total",
		Help: "Requests rejected for an unknown collection or symbol",
	})

	// ValidationFailures counts requests rejected by parameter validation.
	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_validation_failures_total",
		Help: "Requests rejected by parameter validation",
	}, []string{"route"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketdata_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketdata_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern labels by chi route pattern ("/latest/{token}") rather than
// the raw path, which would be unbounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
