package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tallybook.org/internal/ledger"
	"tallybook.org/internal/obs"
	"tallybook.org/internal/stream"
)

// Pinger is satisfied by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks the backing store before the API reports ready.
type ReadyProbe struct {
	Store Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	return rp.Store.Ping(ctx)
}

// API is the loopback HTTP layer over the books.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	books      *ledger.Book
	stream     *stream.Stream
	now        func() time.Time

	rateBurst  int
	ratePerSec float64
}

// Option configures the API.
type Option func(*API)

// WithRateLimit sets the per-client token bucket.
func WithRateLimit(burst int, perSecond float64) Option {
	return func(a *API) {
		if burst > 0 && perSecond > 0 {
			a.rateBurst = burst
			a.ratePerSec = perSecond
		}
	}
}

func New(rp ReadyProbe, version string, books *ledger.Book, st *stream.Stream, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		books:      books,
		stream:     st,
		now:        func() time.Time { return time.Now().UTC() },
		rateBurst:  50,
		ratePerSec: 20,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/items", a.handleItemsCollection)
	a.mux.HandleFunc("/v1/items/{id}", a.handleItemResource)
	a.mux.HandleFunc("/v1/items/{id}/adjust", a.handleItemAdjust)
	a.mux.HandleFunc("/v1/items/{id}/log", a.handleItemLog)
	a.mux.HandleFunc("/v1/audit-log", a.handleAuditLog)

	a.mux.HandleFunc("/v1/transactions", a.handleTransactionsCollection)
	a.mux.HandleFunc("/v1/transactions/{id}", a.handleTransactionResource)

	a.mux.HandleFunc("/v1/journals/{kind}", a.handleJournal)
	a.mux.HandleFunc("/v1/journals/{kind}/{id}/settle", a.handleSettle)

	a.mux.HandleFunc("/v1/summary", a.handleSummary)
	a.mux.HandleFunc("/v1/summary/monthly", a.handleMonthly)
	a.mux.HandleFunc("/v1/settings", a.handleSettings)
	a.mux.HandleFunc("/v1/export.xlsx", a.handleExport)
	a.mux.HandleFunc("/v1/stream", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler wraps the mux with the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tallyd",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":           "tallyd",
		"time":           a.now().Format(time.RFC3339),
		"version":        a.version,
		"schema_version": ledger.SchemaVersion,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
