package ledger

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"tallybook.org/internal/obs"
)

// SettlePayment records a cash payment against a credit Sales or Purchases entry.
// A nil amount settles the whole remainder; larger amounts are clamped to it.
// Settlement moves no stock and does not touch the transaction.
func (b *Book) SettlePayment(ctx context.Context, kind JournalKind, entryID string, amount *decimal.Decimal) (CashEntry, error) {
	if amount != nil && !amount.IsPositive() {
		err := &ValidationError{Field: "amount", Reason: "must be greater than zero"}
		obs.ObserveOperation("payment.settle", errorClass(err))
		return CashEntry{}, err
	}
	var recorded CashEntry
	err := b.mutate(ctx, "payment.settle", func(w *work) (string, error) {
		list := w.journal(kind)
		i := slices.IndexFunc(*list, func(e JournalEntry) bool { return e.ID == entryID })
		if i < 0 {
			return "", &NotFoundError{Kind: string(kind) + " entry", ID: entryID}
		}
		e := &(*list)[i]

		remaining := e.Remaining()
		if !remaining.IsPositive() {
			return "", fmt.Errorf("%w: entry %s is fully paid", ErrNothingToSettle, entryID)
		}
		pay := remaining
		if amount != nil && amount.LessThan(remaining) {
			pay = *amount
		}

		e.PaidAmount = e.PaidAmount.Add(pay)
		e.Paid = e.PaidAmount.GreaterThanOrEqual(e.Amount)
		note := "Partial payment"
		if e.Paid {
			note = "Paid in full"
		}
		recorded = CashEntry{
			ID:          w.newID(),
			Date:        w.now,
			Description: e.Description,
			Amount:      pay,
			EntryID:     e.ID,
			TxnID:       e.TxnID,
			Note:        note,
		}
		prepend(w.cashBook(kind), recorded)
		return e.ID, nil
	})
	return recorded, err
}
