package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tallybook.org/internal/audit"
	"tallybook.org/internal/export"
	"tallybook.org/internal/ledger"
)

var errEmptyBody = errors.New("request body is required")

type adjustRequest struct {
	Delta int    `json:"delta"`
	Note  string `json:"note"`
}

type settleRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type listResponse[T any] struct {
	Items  []T       `json:"items"`
	Period string    `json:"period,omitempty"`
	AsOf   time.Time `json:"as_of"`
}

func writeList[T any](w http.ResponseWriter, asOf time.Time, items []T, p *ledger.Period) {
	resp := listResponse[T]{Items: nonNil(items), AsOf: asOf}
	if p != nil {
		resp.Period = p.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// --- items ---

func (a *API) handleItemsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items := a.books.Items()
		if parseFlag(r, "low") {
			items = a.books.LowStock()
		}
		writeList(w, a.now(), items, nil)
	case http.MethodPost:
		var in ledger.ItemInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		it, err := a.books.CreateItem(r.Context(), in)
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		logEvent(r, "item.create", map[string]any{"item_id": it.ID, "quantity": it.Quantity})
		writeJSON(w, http.StatusCreated, it)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleItemResource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		it, err := a.books.Item(id)
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, it)
	case http.MethodPut:
		var in ledger.ItemInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		it, err := a.books.EditItem(r.Context(), id, in)
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		logEvent(r, "item.edit", map[string]any{"item_id": id})
		writeJSON(w, http.StatusOK, it)
	case http.MethodDelete:
		if err := a.books.DeleteItem(r.Context(), id); err != nil {
			handleLedgerError(w, r, err)
			return
		}
		logEvent(r, "item.delete", map[string]any{"item_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleItemAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	id := r.PathValue("id")
	var req adjustRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	confirmed := parseFlag(r, "confirm")
	it, err := a.books.AdjustStock(r.Context(), id, req.Delta, req.Note, confirmed)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	logEvent(r, "item.adjust", map[string]any{"item_id": id, "delta": req.Delta, "confirmed": confirmed})
	writeJSON(w, http.StatusOK, it)
}

func (a *API) handleItemLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id := r.PathValue("id")
	if _, err := a.books.Item(id); err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeList(w, a.now(), a.books.ItemLog(id), nil)
}

func (a *API) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeList(w, a.now(), a.books.AuditLog(), nil)
}

// --- transactions ---

func (a *API) handleTransactionsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, err := parsePeriod(r)
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		var out []ledger.Transaction
		for _, t := range a.books.Transactions() {
			if p.Contains(t.Date) {
				out = append(out, t)
			}
		}
		writeList(w, a.now(), out, &p)
	case http.MethodPost:
		var in ledger.TransactionInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		t, err := a.books.CreateTransaction(r.Context(), in)
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		logEvent(r, "txn.create", map[string]any{"txn_id": t.ID, "type": t.Type, "amount": t.Amount.String()})
		writeJSON(w, http.StatusCreated, t)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTransactionResource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	confirmed := parseFlag(r, "confirm")
	switch r.Method {
	case http.MethodGet:
		t, err := a.books.Transaction(id)
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	case http.MethodPut:
		var in ledger.TransactionInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		t, err := a.books.EditTransaction(r.Context(), id, in, confirmed)
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		logEvent(r, "txn.edit", map[string]any{"txn_id": id, "confirmed": confirmed})
		writeJSON(w, http.StatusOK, t)
	case http.MethodDelete:
		if err := a.books.DeleteTransaction(r.Context(), id, confirmed); err != nil {
			handleLedgerError(w, r, err)
			return
		}
		logEvent(r, "txn.delete", map[string]any{"txn_id": id, "confirmed": confirmed})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// --- journals ---

func (a *API) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, err := parsePeriod(r)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	switch r.PathValue("kind") {
	case "sales":
		writeList(w, a.now(), a.books.SalesJournal(p), &p)
	case "purchases":
		writeList(w, a.now(), a.books.PurchasesJournal(p), &p)
	case "receipts":
		writeList(w, a.now(), a.books.CashReceipts(p), &p)
	case "disbursements":
		writeList(w, a.now(), a.books.CashDisbursements(p), &p)
	case "general":
		writeList(w, a.now(), a.books.GeneralJournal(p), &p)
	case "receivables":
		writeList(w, a.now(), a.books.Receivables(), nil)
	case "payables":
		writeList(w, a.now(), a.books.Payables(), nil)
	default:
		writeError(w, r, http.StatusNotFound, "unknown journal")
	}
}

func (a *API) handleSettle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	kind, err := ledger.ParseJournalKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "unknown journal")
		return
	}
	var req settleRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	entryID := r.PathValue("id")
	rec, err := a.books.SettlePayment(r.Context(), kind, entryID, req.Amount)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	logEvent(r, "payment.settle", map[string]any{"entry_id": entryID, "kind": kind, "amount": rec.Amount.String()})
	writeJSON(w, http.StatusCreated, rec)
}

// --- aggregates, settings, export ---

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, err := parsePeriod(r)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.books.Summary(p))
}

func (a *API) handleMonthly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeList(w, a.now(), a.books.MonthlyNet(), nil)
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, a.books.Settings())
	case http.MethodPut:
		var s ledger.Settings
		if err := decodeJSON(w, r, &s); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.books.UpdateSettings(r.Context(), s); err != nil {
			handleLedgerError(w, r, err)
			return
		}
		logEvent(r, "settings.update", nil)
		writeJSON(w, http.StatusOK, a.books.Settings())
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, err := parsePeriod(r)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, a.books, p); err != nil {
		handleLedgerError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(p, a.now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// --- helpers ---

func parsePeriod(r *http.Request) (ledger.Period, error) {
	return ledger.ParsePeriod(r.URL.Query().Get("period"))
}

func parseFlag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return err == nil && v
}

func logEvent(r *http.Request, event string, fields map[string]any) {
	_ = audit.LogEvent(r.Context(), event, fields)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr    *ledger.ValidationError
		stock   *ledger.InsufficientStockError
		confirm *ledger.ConfirmationRequiredError
	)
	switch {
	case errors.As(err, &verr):
		writeErrorFields(w, r, http.StatusBadRequest, err.Error(), map[string]any{"field": verr.Field})
	case errors.As(err, &stock):
		writeErrorFields(w, r, http.StatusConflict, err.Error(), map[string]any{
			"code":      "insufficient_stock",
			"item_id":   stock.ItemID,
			"required":  stock.Required,
			"available": stock.Available,
		})
	case errors.As(err, &confirm):
		writeErrorFields(w, r, http.StatusConflict, err.Error(), map[string]any{
			"code":    "confirmation_required",
			"item_id": confirm.ItemID,
			"current": confirm.Current,
			"after":   confirm.After,
		})
	case errors.Is(err, ledger.ErrNothingToSettle):
		writeErrorFields(w, r, http.StatusConflict, err.Error(), map[string]any{"code": "nothing_to_settle"})
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrItemNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrRollbackFailed):
		writeErrorFields(w, r, http.StatusInternalServerError, err.Error(), map[string]any{"code": "rollback_failed"})
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeErrorFields(w, r, code, msg, nil)
}

func writeErrorFields(w http.ResponseWriter, r *http.Request, code int, msg string, fields map[string]any) {
	payload := map[string]any{
		"error": msg,
	}
	for k, v := range fields {
		payload[k] = v
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
