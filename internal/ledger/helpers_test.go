package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tallybook.org/internal/ids"
	"tallybook.org/internal/ledger"
	"tallybook.org/internal/store/memory"
)

var testNow = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func newBook(t *testing.T, opts ...ledger.Option) (*ledger.Book, *memory.Store) {
	t.Helper()
	store := memory.New()
	base := []ledger.Option{
		ledger.WithIDs(ids.Sequence("id")),
		ledger.WithClock(func() time.Time { return testNow }),
	}
	b, err := ledger.Open(context.Background(), store, append(base, opts...)...)
	require.NoError(t, err)
	return b, store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func qty(n int) *int { return &n }

func mustItem(t *testing.T, b *ledger.Book, name, price string, q int) ledger.Item {
	t.Helper()
	it, err := b.CreateItem(context.Background(), ledger.ItemInput{Name: name, UnitPrice: dec(price), Quantity: qty(q)})
	require.NoError(t, err)
	return it
}

func mustTxn(t *testing.T, b *ledger.Book, in ledger.TransactionInput) ledger.Transaction {
	t.Helper()
	txn, err := b.CreateTransaction(context.Background(), in)
	require.NoError(t, err)
	return txn
}

func purchase(itemID string, n int, amount string, method ledger.PaymentMethod) ledger.TransactionInput {
	return ledger.TransactionInput{
		Description:   "Restock",
		Amount:        dec(amount),
		Type:          ledger.Expense,
		InvID:         itemID,
		InvQty:        n,
		PaymentMethod: method,
		Supplier:      "Acme Supply",
	}
}

func sale(itemID string, n int, amount string, method ledger.PaymentMethod) ledger.TransactionInput {
	return ledger.TransactionInput{
		Description:   "Counter sale",
		Amount:        dec(amount),
		Type:          ledger.Revenue,
		InvID:         itemID,
		InvQty:        n,
		PaymentMethod: method,
		Customer:      "Walk-in",
	}
}

func quantityOf(t *testing.T, b *ledger.Book, itemID string) int {
	t.Helper()
	it, err := b.Item(itemID)
	require.NoError(t, err)
	return it.Quantity
}
