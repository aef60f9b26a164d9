package ledger

import "context"

// SetApplyHook installs a function that runs before every inventory apply.
func SetApplyHook(b *Book, fn func(Transaction) error) {
	b.mu.Lock()
	b.applyHook = fn
	b.mu.Unlock()
}

// Reproject runs the creation projection again for an existing transaction.
func Reproject(ctx context.Context, b *Book, txnID string) error {
	return b.mutate(ctx, "test.reproject", func(w *work) (string, error) {
		i := w.txnIndex(txnID)
		if i < 0 {
			return "", &NotFoundError{Kind: "transaction", ID: txnID}
		}
		w.projectCreate(w.Transactions[i])
		return txnID, nil
	})
}
