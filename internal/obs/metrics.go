package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics for the loopback API.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Bookkeeping metrics.
var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_operations_total",
			Help: "Ledger operations by name and outcome.",
		},
		[]string{"op", "outcome"},
	)

	rollbackFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tally_rollback_failures_total",
		Help: "Edits whose inventory rollback failed after a rejected re-apply.",
	})

	inventoryItems = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tally_inventory_items",
		Help: "Number of inventory items currently on the books.",
	})
)

// Init registers all collectors in the default registry. Call once from main.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		operationsTotal, rollbackFailures, inventoryItems,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveOperation counts a ledger operation. outcome is "ok" or a short error class.
func ObserveOperation(op, outcome string) {
	operationsTotal.WithLabelValues(op, outcome).Inc()
}

// RollbackFailed counts an unrecoverable edit rollback.
func RollbackFailed() {
	rollbackFailures.Inc()
}

// SetInventoryItems records the current item count.
func SetInventoryItems(n int) {
	inventoryItems.Set(float64(n))
}

// Instrument records RPS, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath replaces record identifiers with placeholders so metric labels stay
// bounded: /v1/items/01J.../log becomes /v1/items/:id/log.
func CanonicalPath(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	if len(parts) < 3 || parts[0] != "v1" {
		return raw
	}
	switch parts[1] {
	case "items", "transactions":
		if len(parts) > 4 {
			return raw
		}
		parts[2] = ":id"
	case "journals":
		// /v1/journals/{kind}/{id}/settle
		if len(parts) == 5 && parts[4] == "settle" {
			parts[3] = ":id"
		} else {
			return raw
		}
	default:
		return raw
	}
	return "/" + strings.Join(parts, "/")
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
