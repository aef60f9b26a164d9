package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"tallybook.org/internal/ids"
	"tallybook.org/internal/obs"
)

// Store persists every ledger together. Save must commit all documents or none.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// Change describes a committed mutation, for collaborators that re-render.
type Change struct {
	Op string    `json:"op"`
	ID string    `json:"id,omitempty"`
	At time.Time `json:"at"`
}

// Option configures a Book.
type Option func(*Book)

// WithIDs replaces the identifier source.
func WithIDs(gen ids.Generator) Option {
	return func(b *Book) {
		if gen != nil {
			b.newID = gen
		}
	}
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Book) {
		if now != nil {
			b.now = now
		}
	}
}

// WithListener registers a callback invoked after every committed mutation.
func WithListener(fn func(Change)) Option {
	return func(b *Book) { b.listener = fn }
}

// WithLowStockThreshold sets the quantity at or below which an item counts as low.
func WithLowStockThreshold(n int) Option {
	return func(b *Book) { b.lowStock = n }
}

// Book is the bookkeeping core. It owns the application state; every mutation runs
// on a private copy that replaces the live state only after the store accepted it.
type Book struct {
	mu       sync.Mutex
	store    Store
	state    *State
	newID    ids.Generator
	now      func() time.Time
	listener func(Change)
	lowStock int

	// applyHook, when set, runs before every inventory apply. Tests use it to
	// simulate failures the in-memory rules cannot produce.
	applyHook func(Transaction) error
}

// Open loads the books from store.
func Open(ctx context.Context, store Store, opts ...Option) (*Book, error) {
	b := &Book{
		store:    store,
		newID:    ids.New,
		now:      func() time.Time { return time.Now().UTC() },
		lowStock: 5,
	}
	for _, opt := range opts {
		opt(b)
	}
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	if snap.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: snapshot version %d, want %d", ErrSchemaMismatch, snap.Version, SchemaVersion)
	}
	st := snap.State.Clone()
	b.state = st
	obs.SetInventoryItems(len(st.Items))
	return b, nil
}

// work is the scratch copy an operation mutates.
type work struct {
	*State
	newID     ids.Generator
	now       time.Time
	applyHook func(Transaction) error
}

// mutate runs fn against a copy of the state and commits the copy on success.
func (b *Book) mutate(ctx context.Context, op string, fn func(w *work) (string, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	w := &work{
		State:     b.state.Clone(),
		newID:     b.newID,
		now:       b.now(),
		applyHook: b.applyHook,
	}
	id, err := fn(w)
	if err != nil {
		obs.ObserveOperation(op, errorClass(err))
		return err
	}
	if err := b.store.Save(ctx, NewSnapshot(w.State)); err != nil {
		obs.ObserveOperation(op, "store_error")
		return fmt.Errorf("%s: save books: %w", op, err)
	}
	b.state = w.State
	obs.ObserveOperation(op, "ok")
	obs.SetInventoryItems(len(b.state.Items))
	if b.listener != nil {
		b.listener(Change{Op: op, ID: id, At: w.now})
	}
	return nil
}

// read runs fn under the lock against the live state.
func (b *Book) read(fn func(st *State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.state)
}

// Snapshot returns a copy of all ledgers.
func (b *Book) Snapshot() *Snapshot {
	var snap *Snapshot
	b.read(func(st *State) { snap = NewSnapshot(st) })
	return snap
}

// Transactions returns all transactions in creation order.
func (b *Book) Transactions() []Transaction {
	var out []Transaction
	b.read(func(st *State) { out = slices.Clone(st.Transactions) })
	return out
}

// Transaction looks one transaction up by id.
func (b *Book) Transaction(id string) (Transaction, error) {
	var (
		t   Transaction
		err error
	)
	b.read(func(st *State) {
		i := st.txnIndex(id)
		if i < 0 {
			err = &NotFoundError{Kind: "transaction", ID: id}
			return
		}
		t = st.Transactions[i]
	})
	return t, err
}

// Items returns the inventory in creation order.
func (b *Book) Items() []Item {
	var out []Item
	b.read(func(st *State) { out = slices.Clone(st.Items) })
	return out
}

// Item looks one item up by id.
func (b *Book) Item(id string) (Item, error) {
	var (
		it  Item
		err error
	)
	b.read(func(st *State) {
		i := st.itemIndex(id)
		if i < 0 {
			err = &ItemNotFoundError{ItemID: id}
			return
		}
		it = st.Items[i]
	})
	return it, err
}

// LowStock lists items at or below the configured threshold.
func (b *Book) LowStock() []Item {
	var out []Item
	b.read(func(st *State) {
		for _, it := range st.Items {
			if it.Quantity <= b.lowStock {
				out = append(out, it)
			}
		}
	})
	return out
}

// SalesJournal returns sales entries in period, newest first.
func (b *Book) SalesJournal(p Period) []JournalEntry {
	return b.journalIn(KindSale, p)
}

// PurchasesJournal returns purchase entries in period, newest first.
func (b *Book) PurchasesJournal(p Period) []JournalEntry {
	return b.journalIn(KindPurchase, p)
}

func (b *Book) journalIn(kind JournalKind, p Period) []JournalEntry {
	var out []JournalEntry
	b.read(func(st *State) {
		for _, e := range *st.journal(kind) {
			if p.Contains(e.Date) {
				out = append(out, e)
			}
		}
	})
	return out
}

// CashReceipts returns receipts in period, newest first.
func (b *Book) CashReceipts(p Period) []CashEntry {
	return b.cashIn(KindSale, p)
}

// CashDisbursements returns disbursements in period, newest first.
func (b *Book) CashDisbursements(p Period) []CashEntry {
	return b.cashIn(KindPurchase, p)
}

func (b *Book) cashIn(kind JournalKind, p Period) []CashEntry {
	var out []CashEntry
	b.read(func(st *State) {
		for _, c := range *st.cashBook(kind) {
			if p.Contains(c.Date) {
				out = append(out, c)
			}
		}
	})
	return out
}

// Receivables lists credit sales with an unpaid remainder.
func (b *Book) Receivables() []JournalEntry {
	return b.outstanding(KindSale)
}

// Payables lists credit purchases with an unpaid remainder.
func (b *Book) Payables() []JournalEntry {
	return b.outstanding(KindPurchase)
}

func (b *Book) outstanding(kind JournalKind) []JournalEntry {
	var out []JournalEntry
	b.read(func(st *State) {
		for _, e := range *st.journal(kind) {
			if e.Remaining().IsPositive() {
				out = append(out, e)
			}
		}
	})
	return out
}

// Settings returns the display settings.
func (b *Book) Settings() Settings {
	var s Settings
	b.read(func(st *State) { s = st.Settings })
	return s
}

// UpdateSettings replaces the display settings.
func (b *Book) UpdateSettings(ctx context.Context, s Settings) error {
	if err := validateInput(s); err != nil {
		return err
	}
	return b.mutate(ctx, "settings.update", func(w *work) (string, error) {
		w.Settings = s
		return "", nil
	})
}
