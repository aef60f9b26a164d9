package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tallybook.org/internal/ledger"
)

func TestPurchaseAddsStockAndPaysCash(t *testing.T) {
	b, _ := newBook(t)
	widget := mustItem(t, b, "Widget", "10", 5)

	txn := mustTxn(t, b, purchase(widget.ID, 3, "30", ledger.Cash))

	assert.Equal(t, 8, quantityOf(t, b, widget.ID))
	assert.True(t, txn.InvCost.IsZero())
	assert.Equal(t, "Widget", txn.InvName)

	entries := b.PurchasesJournal(ledger.Period{})
	require.Len(t, entries, 1)
	assert.Equal(t, txn.ID, entries[0].TxnID)
	assert.True(t, entries[0].Amount.Equal(dec("30")))
	assert.True(t, entries[0].Paid)
	assert.Equal(t, "Acme Supply", entries[0].Party)

	cash := b.CashDisbursements(ledger.Period{})
	require.Len(t, cash, 1)
	assert.Equal(t, entries[0].ID, cash[0].EntryID)
	assert.True(t, cash[0].Amount.Equal(dec("30")))
}

func TestSaleRecordsCostOfGoods(t *testing.T) {
	b, _ := newBook(t)
	widget := mustItem(t, b, "Widget", "10", 5)
	mustTxn(t, b, purchase(widget.ID, 3, "30", ledger.Cash))

	txn := mustTxn(t, b, sale(widget.ID, 6, "90", ledger.Cash))

	assert.Equal(t, 2, quantityOf(t, b, widget.ID))
	assert.True(t, txn.InvCost.Equal(dec("60")), "inv cost %s", txn.InvCost)

	entries := b.SalesJournal(ledger.Period{})
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Amount.Equal(dec("90")))
	assert.True(t, entries[0].Paid)
	assert.Equal(t, "Walk-in", entries[0].Party)
	require.Len(t, b.CashReceipts(ledger.Period{}), 1)
}

func TestSaleBeyondStockIsRejected(t *testing.T) {
	b, _ := newBook(t)
	widget := mustItem(t, b, "Widget", "10", 2)
	logBefore := b.AuditLog()

	_, err := b.CreateTransaction(context.Background(), sale(widget.ID, 5, "75", ledger.Cash))
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	var stock *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 5, stock.Required)
	assert.Equal(t, 2, stock.Available)
	assert.Equal(t, "Widget", stock.ItemName)

	assert.Equal(t, 2, quantityOf(t, b, widget.ID))
	assert.Empty(t, b.Transactions())
	assert.Empty(t, b.SalesJournal(ledger.Period{}))
	assert.Equal(t, logBefore, b.AuditLog())
}

func TestDeletePurchaseRevertsStockAndJournals(t *testing.T) {
	b, _ := newBook(t)
	widget := mustItem(t, b, "Widget", "10", 5)
	txn := mustTxn(t, b, purchase(widget.ID, 3, "30", ledger.Cash))

	require.NoError(t, b.DeleteTransaction(context.Background(), txn.ID, false))

	assert.Equal(t, 5, quantityOf(t, b, widget.ID))
	assert.Empty(t, b.Transactions())
	assert.Empty(t, b.PurchasesJournal(ledger.Period{}))
	assert.Empty(t, b.CashDisbursements(ledger.Period{}))
}

func TestEditBeyondStockLeavesBooksUntouched(t *testing.T) {
	b, _ := newBook(t)
	ctx := context.Background()
	widget := mustItem(t, b, "Widget", "10", 5)
	mustTxn(t, b, purchase(widget.ID, 3, "30", ledger.Cash))
	sold := mustTxn(t, b, sale(widget.ID, 6, "90", ledger.Cash))

	salesBefore := b.SalesJournal(ledger.Period{})
	logBefore := b.AuditLog()

	_, err := b.EditTransaction(ctx, sold.ID, sale(widget.ID, 100, "90", ledger.Cash), false)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	assert.Equal(t, 2, quantityOf(t, b, widget.ID))
	got, err := b.Transaction(sold.ID)
	require.NoError(t, err)
	assert.Equal(t, sold, got)
	assert.Equal(t, salesBefore, b.SalesJournal(ledger.Period{}))
	assert.Equal(t, logBefore, b.AuditLog())
}

func TestApplyRevertIsInverse(t *testing.T) {
	b, _ := newBook(t)
	widget := mustItem(t, b, "Widget", "10", 5)
	txn := mustTxn(t, b, sale(widget.ID, 3, "45", ledger.Cash))
	require.NoError(t, b.DeleteTransaction(context.Background(), txn.ID, false))

	assert.Equal(t, 5, quantityOf(t, b, widget.ID))
	var sum, n int
	for _, e := range b.ItemLog(widget.ID) {
		if e.TxnID == txn.ID {
			sum += e.QtyChange
			n++
		}
	}
	assert.Equal(t, 2, n)
	assert.Zero(t, sum)
	assert.Empty(t, b.CashReceipts(ledger.Period{}))
}

func TestEditKeepsIdentityAndPatchesEntry(t *testing.T) {
	b, _ := newBook(t)
	ctx := context.Background()
	widget := mustItem(t, b, "Widget", "10", 8)
	sold := mustTxn(t, b, sale(widget.ID, 6, "90", ledger.Credit))
	entry := b.SalesJournal(ledger.Period{})[0]

	in := sale(widget.ID, 5, "95", ledger.Credit)
	in.Customer = "Bea"
	edited, err := b.EditTransaction(ctx, sold.ID, in, false)
	require.NoError(t, err)

	assert.Equal(t, sold.ID, edited.ID)
	assert.Equal(t, 3, quantityOf(t, b, widget.ID))
	assert.True(t, edited.InvCost.Equal(dec("50")))
	require.Len(t, b.Transactions(), 1)

	entries := b.SalesJournal(ledger.Period{})
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.True(t, entries[0].Amount.Equal(dec("95")))
	assert.Equal(t, 5, entries[0].Quantity)
	assert.Equal(t, "Bea", entries[0].Party)

	var actions []string
	for _, e := range b.ItemLog(widget.ID) {
		actions = append(actions, string(e.Action))
	}
	assert.Equal(t, []string{"sale", "restore", "sale"}, actions)
}

func TestEditRollbackFailureIsFatal(t *testing.T) {
	b, store := newBook(t)
	ctx := context.Background()
	widget := mustItem(t, b, "Widget", "10", 5)
	sold := mustTxn(t, b, sale(widget.ID, 2, "30", ledger.Cash))
	saves := store.Saves()

	ledger.SetApplyHook(b, func(ledger.Transaction) error { return errors.New("ledger device unavailable") })

	_, err := b.EditTransaction(ctx, sold.ID, sale(widget.ID, 1, "15", ledger.Cash), false)
	require.ErrorIs(t, err, ledger.ErrRollbackFailed)
	var rb *ledger.RollbackError
	require.ErrorAs(t, err, &rb)
	assert.Equal(t, sold.ID, rb.TxnID)
	assert.NotNil(t, rb.Apply)
	assert.NotNil(t, rb.Rollback)

	assert.Equal(t, saves, store.Saves())
	assert.Equal(t, 3, quantityOf(t, b, widget.ID))
}

func TestEditRollbackRestoresOriginal(t *testing.T) {
	b, _ := newBook(t)
	ctx := context.Background()
	widget := mustItem(t, b, "Widget", "10", 5)
	sold := mustTxn(t, b, sale(widget.ID, 2, "30", ledger.Cash))

	injected := errors.New("rejected")
	ledger.SetApplyHook(b, func(txn ledger.Transaction) error {
		if txn.InvQty == 4 {
			return injected
		}
		return nil
	})

	_, err := b.EditTransaction(ctx, sold.ID, sale(widget.ID, 4, "60", ledger.Cash), false)
	require.ErrorIs(t, err, injected)
	assert.NotErrorIs(t, err, ledger.ErrRollbackFailed)
	assert.Equal(t, 3, quantityOf(t, b, widget.ID))
}

func TestDeletePurchaseBelowZeroNeedsConfirmation(t *testing.T) {
	b, _ := newBook(t)
	ctx := context.Background()
	widget := mustItem(t, b, "Widget", "10", 5)
	bought := mustTxn(t, b, purchase(widget.ID, 3, "30", ledger.Cash))
	mustTxn(t, b, sale(widget.ID, 7, "105", ledger.Cash))

	err := b.DeleteTransaction(ctx, bought.ID, false)
	require.ErrorIs(t, err, ledger.ErrConfirmationRequired)
	var confirm *ledger.ConfirmationRequiredError
	require.ErrorAs(t, err, &confirm)
	assert.Equal(t, 1, confirm.Current)
	assert.Equal(t, -2, confirm.After)
	assert.Equal(t, 1, quantityOf(t, b, widget.ID))
	assert.Len(t, b.Transactions(), 2)

	require.NoError(t, b.DeleteTransaction(ctx, bought.ID, true))
	assert.Equal(t, -2, quantityOf(t, b, widget.ID))
	assert.Empty(t, b.PurchasesJournal(ledger.Period{}))
	assert.Empty(t, b.CashDisbursements(ledger.Period{}))
}

func TestEditPurchaseBelowZeroNeedsConfirmation(t *testing.T) {
	b, _ := newBook(t)
	ctx := context.Background()
	widget := mustItem(t, b, "Widget", "10", 5)
	bought := mustTxn(t, b, purchase(widget.ID, 3, "30", ledger.Cash))
	mustTxn(t, b, sale(widget.ID, 7, "105", ledger.Cash))

	_, err := b.EditTransaction(ctx, bought.ID, purchase(widget.ID, 1, "10", ledger.Cash), false)
	require.ErrorIs(t, err, ledger.ErrConfirmationRequired)
	assert.Equal(t, 1, quantityOf(t, b, widget.ID))

	_, err = b.EditTransaction(ctx, bought.ID, purchase(widget.ID, 1, "10", ledger.Cash), true)
	require.NoError(t, err)
	assert.Equal(t, -1, quantityOf(t, b, widget.ID))
	entries := b.PurchasesJournal(ledger.Period{})
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Quantity)
}

func TestTransactionValidation(t *testing.T) {
	b, _ := newBook(t)
	ctx := context.Background()
	widget := mustItem(t, b, "Widget", "10", 5)

	cases := []struct {
		name  string
		in    ledger.TransactionInput
		field string
	}{
		{"empty description", ledger.TransactionInput{Description: "  ", Amount: dec("5"), Type: ledger.Revenue}, "description"},
		{"zero amount", ledger.TransactionInput{Description: "x", Amount: dec("0"), Type: ledger.Revenue}, "amount"},
		{"negative amount", ledger.TransactionInput{Description: "x", Amount: dec("-3"), Type: ledger.Expense}, "amount"},
		{"bad type", ledger.TransactionInput{Description: "x", Amount: dec("3"), Type: "transfer"}, "type"},
		{"linked without quantity", ledger.TransactionInput{Description: "x", Amount: dec("3"), Type: ledger.Revenue, InvID: widget.ID}, "inv_qty"},
		{"bad payment method", ledger.TransactionInput{Description: "x", Amount: dec("3"), Type: ledger.Revenue, PaymentMethod: "Barter"}, "payment_method"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.CreateTransaction(ctx, tc.in)
			require.ErrorIs(t, err, ledger.ErrValidation)
			var verr *ledger.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
	assert.Empty(t, b.Transactions())
}

func TestLinkToMissingItem(t *testing.T) {
	b, _ := newBook(t)
	ctx := context.Background()
	widget := mustItem(t, b, "Widget", "10", 5)
	sold := mustTxn(t, b, sale(widget.ID, 1, "15", ledger.Cash))
	require.NoError(t, b.DeleteItem(ctx, widget.ID))

	_, err := b.CreateTransaction(ctx, sale(widget.ID, 1, "15", ledger.Cash))
	require.ErrorIs(t, err, ledger.ErrItemNotFound)

	err = b.DeleteTransaction(ctx, sold.ID, true)
	require.ErrorIs(t, err, ledger.ErrItemNotFound)
	_, err = b.EditTransaction(ctx, sold.ID, ledger.TransactionInput{Description: "x", Amount: dec("1"), Type: ledger.Revenue}, false)
	require.ErrorIs(t, err, ledger.ErrItemNotFound)

	assert.Len(t, b.Transactions(), 1)
	assert.Len(t, b.SalesJournal(ledger.Period{}), 1)
}

func TestUnknownTransaction(t *testing.T) {
	b, _ := newBook(t)
	err := b.DeleteTransaction(context.Background(), "nope", false)
	require.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = b.Transaction("nope")
	require.ErrorIs(t, err, ledger.ErrNotFound)
}
