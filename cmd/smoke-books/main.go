package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"tallybook.org/internal/ledger"
	"tallybook.org/internal/store/sqlite"
)

func main() {
	log.SetFlags(0)

	dir, err := os.MkdirTemp("", "smoke-books-")
	if err != nil {
		log.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "books.db")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	books, store := open(ctx, path)

	widget, err := books.CreateItem(ctx, ledger.ItemInput{Name: "Widget", UnitPrice: decimal.NewFromInt(10), Quantity: ptr(5)})
	if err != nil {
		log.Fatalf("create item: %v", err)
	}

	// A: purchase 3 for cash.
	purchase, err := books.CreateTransaction(ctx, ledger.TransactionInput{
		Description: "Restock widgets", Amount: decimal.NewFromInt(30), Type: ledger.Expense,
		InvID: widget.ID, InvQty: 3, PaymentMethod: ledger.Cash, Supplier: "Acme Supply",
	})
	if err != nil {
		log.Fatalf("A: purchase: %v", err)
	}
	expectQty(books, widget.ID, 8, "A")
	if n := len(books.PurchasesJournal(ledger.Period{})); n != 1 {
		log.Fatalf("A: expected 1 purchases entry, got %d", n)
	}
	if n := len(books.CashDisbursements(ledger.Period{})); n != 1 {
		log.Fatalf("A: expected 1 disbursement, got %d", n)
	}

	// B: sell 6.
	sale, err := books.CreateTransaction(ctx, ledger.TransactionInput{
		Description: "Counter sale", Amount: decimal.NewFromInt(90), Type: ledger.Revenue,
		InvID: widget.ID, InvQty: 6, PaymentMethod: ledger.Cash,
	})
	if err != nil {
		log.Fatalf("B: sale: %v", err)
	}
	expectQty(books, widget.ID, 2, "B")
	if !sale.InvCost.Equal(decimal.NewFromInt(60)) {
		log.Fatalf("B: inv cost %s, want 60", sale.InvCost)
	}

	// C: oversell.
	_, err = books.CreateTransaction(ctx, ledger.TransactionInput{
		Description: "Oversell", Amount: decimal.NewFromInt(50), Type: ledger.Revenue,
		InvID: widget.ID, InvQty: 5,
	})
	if !errors.Is(err, ledger.ErrInsufficientStock) {
		log.Fatalf("C: expected insufficient stock, got %v", err)
	}
	expectQty(books, widget.ID, 2, "C")
	if n := len(books.Transactions()); n != 2 {
		log.Fatalf("C: expected 2 transactions, got %d", n)
	}

	// E: edit the sale past available stock.
	edit := ledger.TransactionInput{
		Description: sale.Description, Amount: sale.Amount, Type: sale.Type, Date: sale.Date,
		InvID: widget.ID, InvQty: 100, PaymentMethod: sale.PaymentMethod,
	}
	if _, err := books.EditTransaction(ctx, sale.ID, edit, false); !errors.Is(err, ledger.ErrInsufficientStock) {
		log.Fatalf("E: expected insufficient stock, got %v", err)
	}
	expectQty(books, widget.ID, 2, "E")
	if got := books.SalesJournal(ledger.Period{}); len(got) != 1 || got[0].Quantity != 6 {
		log.Fatalf("E: sales journal changed: %+v", got)
	}

	// D: drop the purchase. Stock is 2 after the sale, so this needs confirmation.
	if err := books.DeleteTransaction(ctx, purchase.ID, false); !errors.Is(err, ledger.ErrConfirmationRequired) {
		log.Fatalf("D: expected confirmation gate, got %v", err)
	}
	if err := books.DeleteTransaction(ctx, purchase.ID, true); err != nil {
		log.Fatalf("D: delete: %v", err)
	}
	expectQty(books, widget.ID, -1, "D")
	if n := len(books.PurchasesJournal(ledger.Period{})) + len(books.CashDisbursements(ledger.Period{})); n != 0 {
		log.Fatalf("D: expected purchase rows removed, %d left", n)
	}

	_ = store.Close()

	reopened, store := open(ctx, path)
	defer store.Close()
	expectQty(reopened, widget.ID, -1, "reload")
	if n := len(reopened.AuditLog()); n != 3 {
		log.Fatalf("reload: expected 3 audit entries, got %d", n)
	}

	fmt.Printf("smoke-books passed: item=%s sale=%s db=%s\n", widget.ID, sale.ID, path)
}

func open(ctx context.Context, path string) (*ledger.Book, *sqlite.Store) {
	store, err := sqlite.Open(path)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	if _, err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	books, err := ledger.Open(ctx, store)
	if err != nil {
		log.Fatalf("load books: %v", err)
	}
	return books, store
}

func expectQty(b *ledger.Book, itemID string, want int, step string) {
	it, err := b.Item(itemID)
	if err != nil {
		log.Fatalf("%s: item: %v", step, err)
	}
	if it.Quantity != want {
		log.Fatalf("%s: quantity %d, want %d", step, it.Quantity, want)
	}
}

func ptr[T any](v T) *T { return &v }
