package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tallybook.org/internal/obs"
)

// Action classifies an inventory quantity change.
type Action string

const (
	ActionSale     Action = "sale"
	ActionPurchase Action = "purchase"
	ActionRestore  Action = "restore"
	ActionManual   Action = "manual"
	ActionEdit     Action = "edit"
)

// Entry is one immutable line of the inventory audit trail.
//
// ItemID is a back-reference, not ownership: the entry outlives nothing, since
// deleting the item purges it. BalanceAfter is the item quantity at write time and
// is never recomputed.
type Entry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ItemID       *string   `json:"item_id"`
	ItemName     string    `json:"item_name"`
	Action       Action    `json:"action"`
	QtyChange    int       `json:"qty_change"`
	BalanceAfter *int      `json:"balance_after"`
	TxnID        string    `json:"txn_id,omitempty"`
	Note         string    `json:"note"`
}

// Log is the append-only inventory audit trail, newest first.
type Log []Entry

// Append records e as the newest entry.
func (l *Log) Append(e Entry) {
	*l = append(Log{e}, (*l)...)
}

// Entries returns a copy of the whole trail.
func (l Log) Entries() []Entry {
	return l.filter(func(Entry) bool { return true })
}

// ForItem returns the trail of one item, newest first.
func (l Log) ForItem(itemID string) []Entry {
	return l.filter(func(e Entry) bool { return e.ItemID != nil && *e.ItemID == itemID })
}

// ForTransaction returns the entries written on behalf of one transaction.
func (l Log) ForTransaction(txnID string) []Entry {
	return l.filter(func(e Entry) bool { return txnID != "" && e.TxnID == txnID })
}

// PurgeItem drops every entry of the item and reports how many were removed.
func (l *Log) PurgeItem(itemID string) int {
	kept := (*l)[:0:0]
	removed := 0
	for _, e := range *l {
		if e.ItemID != nil && *e.ItemID == itemID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	*l = kept
	return removed
}

// Sum adds up the quantity changes recorded for an item.
func (l Log) Sum(itemID string) int {
	total := 0
	for _, e := range l.ForItem(itemID) {
		total += e.QtyChange
	}
	return total
}

// Clone returns a deep copy; pointer fields are duplicated.
func (l Log) Clone() Log {
	if l == nil {
		return nil
	}
	out := make(Log, len(l))
	for i, e := range l {
		if e.ItemID != nil {
			id := *e.ItemID
			e.ItemID = &id
		}
		if e.BalanceAfter != nil {
			bal := *e.BalanceAfter
			e.BalanceAfter = &bal
		}
		out[i] = e
	}
	return out
}

func (l Log) filter(keep func(Entry) bool) []Entry {
	out := make([]Entry, 0, len(l))
	for _, e := range l.Clone() {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for event logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an operational event line enriched with the request id.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := logrus.Fields{
		"type":  "audit",
		"event": event,
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}
	entry["fields"] = copyFields
	obs.Logger().WithFields(entry).Info(event)
	return nil
}
