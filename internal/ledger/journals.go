package ledger

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// journalKindFor maps a transaction to the journal that holds its entry; ok is false
// for a non-inventory expense, which only produces a bare disbursement.
func journalKindFor(t Transaction) (JournalKind, bool) {
	switch {
	case t.Type == Revenue:
		return KindSale, true
	case t.Linked():
		return KindPurchase, true
	default:
		return "", false
	}
}

func partyOf(t Transaction) string {
	if t.Type == Revenue {
		return t.Customer
	}
	return t.Supplier
}

func prepend[T any](list *[]T, v T) {
	*list = append([]T{v}, (*list)...)
}

// projectCreate derives the journal rows of a new transaction. Rows already keyed by
// the transaction id are dropped first, so projecting twice replaces instead of
// duplicating.
func (w *work) projectCreate(t Transaction) {
	w.dropJournalRows(t.ID)

	kind, ok := journalKindFor(t)
	if !ok {
		prepend(&w.Disbursements, CashEntry{
			ID:          w.newID(),
			Date:        t.Date,
			Description: t.Description,
			Amount:      t.Amount,
			TxnID:       t.ID,
			Note:        "Operating expense",
		})
		return
	}

	e := JournalEntry{
		ID:            w.newID(),
		TxnID:         t.ID,
		Date:          t.Date,
		Description:   t.Description,
		ItemID:        t.InvID,
		ItemName:      t.InvName,
		Quantity:      t.InvQty,
		Amount:        t.Amount,
		PaidAmount:    decimal.Zero,
		PaymentMethod: t.PaymentMethod,
		Party:         partyOf(t),
	}
	if t.PaymentMethod == Cash {
		e.PaidAmount = t.Amount
		e.Paid = true
	}
	prepend(w.journal(kind), e)

	if e.Paid {
		note := "Cash sale"
		if kind == KindPurchase {
			note = "Cash purchase"
		}
		prepend(w.cashBook(kind), CashEntry{
			ID:          w.newID(),
			Date:        t.Date,
			Description: t.Description,
			Amount:      t.Amount,
			EntryID:     e.ID,
			TxnID:       t.ID,
			Note:        note,
		})
	}
}

// projectUpdate realigns the journal rows after an edit. The existing entry is
// patched in place so its payment history survives; when the transaction moved to a
// different journal, or is a bare expense, its rows are rebuilt.
func (w *work) projectUpdate(t, original Transaction) {
	kind, ok := journalKindFor(t)
	origKind, origOK := journalKindFor(original)
	if !ok || !origOK || kind != origKind {
		w.projectCreate(t)
		return
	}
	list := w.journal(kind)
	i := slices.IndexFunc(*list, func(e JournalEntry) bool { return e.TxnID == t.ID })
	if i < 0 {
		w.projectCreate(t)
		return
	}

	e := &(*list)[i]
	e.Date = t.Date
	e.Description = t.Description
	e.ItemID = t.InvID
	e.ItemName = t.InvName
	e.Quantity = t.InvQty
	e.Amount = t.Amount
	e.PaymentMethod = t.PaymentMethod
	e.Party = partyOf(t)

	if e.PaidAmount.GreaterThan(e.Amount) {
		e.PaidAmount = e.Amount
	}
	e.Paid = e.PaidAmount.GreaterThanOrEqual(e.Amount)

	if e.PaymentMethod == Cash && !e.Paid {
		diff := e.Remaining()
		e.PaidAmount = e.Amount
		e.Paid = true
		prepend(w.cashBook(kind), CashEntry{
			ID:          w.newID(),
			Date:        w.now,
			Description: e.Description,
			Amount:      diff,
			EntryID:     e.ID,
			TxnID:       t.ID,
			Note:        fmt.Sprintf("Marked paid on edit (%s)", diff.StringFixed(2)),
		})
	}
}

// dropJournalRows removes every journal entry keyed by txnID together with the
// receipts and disbursements that reference those entries or the transaction.
func (w *work) dropJournalRows(txnID string) {
	for _, kind := range []JournalKind{KindSale, KindPurchase} {
		list := w.journal(kind)
		var entryIDs []string
		*list = slices.DeleteFunc(*list, func(e JournalEntry) bool {
			if e.TxnID == txnID {
				entryIDs = append(entryIDs, e.ID)
				return true
			}
			return false
		})
		cash := w.cashBook(kind)
		*cash = slices.DeleteFunc(*cash, func(c CashEntry) bool {
			return c.TxnID == txnID || (c.EntryID != "" && slices.Contains(entryIDs, c.EntryID))
		})
	}
}
