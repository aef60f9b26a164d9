package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tallybook.org/internal/audit"
)

func (w *work) item(id string) (*Item, error) {
	i := w.itemIndex(id)
	if i < 0 {
		return nil, &ItemNotFoundError{ItemID: id}
	}
	return &w.Items[i], nil
}

// applyEffect moves stock for t and sets its COGS snapshot. Nothing is touched
// unless every precondition holds.
func (w *work) applyEffect(t *Transaction) error {
	if w.applyHook != nil {
		if err := w.applyHook(*t); err != nil {
			return err
		}
	}
	if !t.Linked() {
		t.InvCost = decimal.Zero
		return nil
	}
	it, err := w.item(t.InvID)
	if err != nil {
		return err
	}
	t.InvName = it.Name
	switch t.Type {
	case Revenue:
		if it.Quantity < t.InvQty {
			return &InsufficientStockError{ItemID: it.ID, ItemName: it.Name, Required: t.InvQty, Available: it.Quantity}
		}
		it.Quantity -= t.InvQty
		t.InvCost = it.UnitPrice.Mul(decimal.NewFromInt(int64(t.InvQty)))
		w.logChange(it, audit.ActionSale, -t.InvQty, t.ID, "Sale: "+t.Description)
	default:
		it.Quantity += t.InvQty
		t.InvCost = decimal.Zero
		w.logChange(it, audit.ActionPurchase, t.InvQty, t.ID, "Purchase: "+t.Description)
	}
	return nil
}

// revertEffect undoes applyEffect. Reverting a purchase may leave the item negative;
// callers gate that behind confirmation before getting here.
func (w *work) revertEffect(t Transaction) error {
	if !t.Linked() {
		return nil
	}
	it, err := w.item(t.InvID)
	if err != nil {
		return err
	}
	switch t.Type {
	case Revenue:
		it.Quantity += t.InvQty
		w.logChange(it, audit.ActionRestore, t.InvQty, t.ID, "Reverted sale: "+t.Description)
	default:
		it.Quantity -= t.InvQty
		w.logChange(it, audit.ActionRestore, -t.InvQty, t.ID, "Reverted purchase: "+t.Description)
	}
	return nil
}

// manualAdjust changes quantity directly.
func (w *work) manualAdjust(itemID string, delta int, note string) (*Item, error) {
	it, err := w.item(itemID)
	if err != nil {
		return nil, err
	}
	it.Quantity += delta
	w.logChange(it, audit.ActionManual, delta, "", note)
	return it, nil
}

func (w *work) logChange(it *Item, action audit.Action, delta int, txnID, note string) {
	itemID := it.ID
	balance := it.Quantity
	w.AuditLog.Append(audit.Entry{
		ID:           w.newID(),
		Timestamp:    w.now,
		ItemID:       &itemID,
		ItemName:     it.Name,
		Action:       action,
		QtyChange:    delta,
		BalanceAfter: &balance,
		TxnID:        txnID,
		Note:         note,
	})
}

// needsConfirmation returns a ConfirmationRequiredError when moving it from its
// current quantity by delta would end below zero.
func needsConfirmation(it *Item, delta int) error {
	after := it.Quantity + delta
	if after >= 0 || delta >= 0 {
		return nil
	}
	return &ConfirmationRequiredError{ItemID: it.ID, ItemName: it.Name, Current: it.Quantity, After: after}
}

func describeItemChanges(old Item, in ItemInput) string {
	var changes []string
	if old.Name != in.Name {
		changes = append(changes, fmt.Sprintf("name %q -> %q", old.Name, in.Name))
	}
	if !old.UnitPrice.Equal(in.UnitPrice) {
		changes = append(changes, fmt.Sprintf("unit price %s -> %s", old.UnitPrice.StringFixed(2), in.UnitPrice.StringFixed(2)))
	}
	if old.Category != in.Category {
		changes = append(changes, fmt.Sprintf("category %q -> %q", old.Category, in.Category))
	}
	if old.Description != in.Description {
		changes = append(changes, "description updated")
	}
	if len(changes) == 0 {
		return ""
	}
	return "Details updated: " + strings.Join(changes, "; ")
}
