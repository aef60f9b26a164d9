package ledger

import (
	"context"
	"strings"

	"tallybook.org/internal/obs"
)

func normalizeTransaction(in TransactionInput) (TransactionInput, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.InvID = strings.TrimSpace(in.InvID)
	in.Customer = strings.TrimSpace(in.Customer)
	in.Supplier = strings.TrimSpace(in.Supplier)
	if in.PaymentMethod == "" {
		in.PaymentMethod = Cash
	}
	if err := validateInput(in); err != nil {
		return in, err
	}
	if !in.Amount.IsPositive() {
		return in, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if in.InvID != "" && in.InvQty <= 0 {
		return in, &ValidationError{Field: "inv_qty", Reason: "must be greater than zero"}
	}
	if in.InvID == "" {
		in.InvQty = 0
	}
	if in.Type != Revenue {
		in.Customer = ""
	}
	if in.Type != Expense || in.InvID == "" {
		in.Supplier = ""
	}
	return in, nil
}

func (w *work) buildTransaction(id string, in TransactionInput) Transaction {
	date := in.Date
	if date.IsZero() {
		date = w.now
	}
	return Transaction{
		ID:            id,
		Description:   in.Description,
		Amount:        in.Amount,
		Type:          in.Type,
		Date:          date.UTC(),
		InvID:         in.InvID,
		InvQty:        in.InvQty,
		PaymentMethod: in.PaymentMethod,
		Customer:      in.Customer,
		Supplier:      in.Supplier,
	}
}

// CreateTransaction validates, applies the inventory effect, records the
// transaction and projects its journal rows. A failed apply records nothing.
func (b *Book) CreateTransaction(ctx context.Context, in TransactionInput) (Transaction, error) {
	in, err := normalizeTransaction(in)
	if err != nil {
		obs.ObserveOperation("txn.create", errorClass(err))
		return Transaction{}, err
	}
	var created Transaction
	err = b.mutate(ctx, "txn.create", func(w *work) (string, error) {
		t := w.buildTransaction(w.newID(), in)
		if err := w.applyEffect(&t); err != nil {
			return "", err
		}
		w.Transactions = append(w.Transactions, t)
		w.projectCreate(t)
		created = t
		return t.ID, nil
	})
	return created, err
}

// EditTransaction replaces a transaction in place, keeping its id.
//
// The original inventory effect is reverted first. If the new effect cannot be
// applied, the original effect is re-applied and the apply error returned; if that
// re-apply fails too the result is a RollbackError and nothing is committed.
// A purchase edit that leaves its item below zero needs confirmation.
func (b *Book) EditTransaction(ctx context.Context, id string, in TransactionInput, confirmed bool) (Transaction, error) {
	in, err := normalizeTransaction(in)
	if err != nil {
		obs.ObserveOperation("txn.edit", errorClass(err))
		return Transaction{}, err
	}
	var edited Transaction
	err = b.mutate(ctx, "txn.edit", func(w *work) (string, error) {
		i := w.txnIndex(id)
		if i < 0 {
			return "", &NotFoundError{Kind: "transaction", ID: id}
		}
		original := w.Transactions[i]

		before := 0
		if original.Linked() {
			it, err := w.item(original.InvID)
			if err != nil {
				return "", err
			}
			before = it.Quantity
			if err := w.revertEffect(original); err != nil {
				return "", err
			}
		}

		candidate := w.buildTransaction(id, in)
		if err := w.applyEffect(&candidate); err != nil {
			if original.Linked() {
				restore := original
				if rbErr := w.applyEffect(&restore); rbErr != nil {
					rb := &RollbackError{TxnID: id, Apply: err, Rollback: rbErr}
					obs.RollbackFailed()
					obs.LogError("ledger", "EditTransaction", "rollback", map[string]any{"txn_id": id}, rb)
					return "", rb
				}
			}
			return "", err
		}

		if original.Linked() && original.Type == Expense {
			it, err := w.item(original.InvID)
			if err != nil {
				return "", err
			}
			if it.Quantity < 0 && it.Quantity < before {
				if !confirmed {
					return "", &ConfirmationRequiredError{ItemID: it.ID, ItemName: it.Name, Current: before, After: it.Quantity}
				}
				obs.Logger().WithField("txn_id", id).WithField("item_id", it.ID).Warn("confirmed purchase edit below zero")
			}
		}

		w.Transactions[i] = candidate
		w.projectUpdate(candidate, original)
		edited = candidate
		return id, nil
	})
	return edited, err
}

// DeleteTransaction reverts the inventory effect and removes the transaction with
// every journal row and cash record derived from it.
func (b *Book) DeleteTransaction(ctx context.Context, id string, confirmed bool) error {
	return b.mutate(ctx, "txn.delete", func(w *work) (string, error) {
		i := w.txnIndex(id)
		if i < 0 {
			return "", &NotFoundError{Kind: "transaction", ID: id}
		}
		t := w.Transactions[i]
		if t.Linked() {
			it, err := w.item(t.InvID)
			if err != nil {
				return "", err
			}
			if t.Type == Expense {
				if err := needsConfirmation(it, -t.InvQty); err != nil {
					if !confirmed {
						return "", err
					}
					obs.Logger().WithField("txn_id", id).WithField("item_id", it.ID).Warn("confirmed purchase reversal below zero")
				}
			}
			if err := w.revertEffect(t); err != nil {
				return "", err
			}
		}
		w.dropJournalRows(id)
		w.Transactions = append(w.Transactions[:i], w.Transactions[i+1:]...)
		return id, nil
	})
}
