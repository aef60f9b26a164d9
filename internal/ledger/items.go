package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"tallybook.org/internal/audit"
	"tallybook.org/internal/obs"
)

func normalizeItem(in ItemInput) (ItemInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if err := validateInput(in); err != nil {
		return in, err
	}
	if in.UnitPrice.IsNegative() {
		return in, &ValidationError{Field: "unit_price", Reason: "must be >= 0"}
	}
	return in, nil
}

// CreateItem adds an inventory item. Its starting quantity is the baseline the audit
// trail is measured against, so creation writes no audit entry.
func (b *Book) CreateItem(ctx context.Context, in ItemInput) (Item, error) {
	in, err := normalizeItem(in)
	if err != nil {
		obs.ObserveOperation("item.create", errorClass(err))
		return Item{}, err
	}
	var created Item
	err = b.mutate(ctx, "item.create", func(w *work) (string, error) {
		qty := 0
		if in.Quantity != nil {
			qty = *in.Quantity
		}
		created = Item{
			ID:          w.newID(),
			Name:        in.Name,
			Description: in.Description,
			Category:    in.Category,
			UnitPrice:   in.UnitPrice,
			Quantity:    qty,
			CreatedAt:   w.now,
		}
		w.Items = append(w.Items, created)
		return created.ID, nil
	})
	return created, err
}

// EditItem patches item details. A changed quantity is reconciled through a manual
// adjustment of (new - current); detail-only changes leave an edit entry with no
// quantity change. Past transactions keep their snapshot of the old name.
func (b *Book) EditItem(ctx context.Context, id string, in ItemInput) (Item, error) {
	in, err := normalizeItem(in)
	if err != nil {
		obs.ObserveOperation("item.edit", errorClass(err))
		return Item{}, err
	}
	var edited Item
	err = b.mutate(ctx, "item.edit", func(w *work) (string, error) {
		it, err := w.item(id)
		if err != nil {
			return "", err
		}
		if note := describeItemChanges(*it, in); note != "" {
			it.Name = in.Name
			it.Description = in.Description
			it.Category = in.Category
			it.UnitPrice = in.UnitPrice
			w.logChange(it, audit.ActionEdit, 0, "", note)
		}
		if in.Quantity != nil && *in.Quantity != it.Quantity {
			if it, err = w.manualAdjust(id, *in.Quantity-it.Quantity, "Starting quantity changed"); err != nil {
				return "", err
			}
		}
		edited = *it
		return id, nil
	})
	return edited, err
}

// DeleteItem removes an item and purges its audit trail. Transactions that linked
// to it are left alone; reverting them later fails with ErrItemNotFound.
func (b *Book) DeleteItem(ctx context.Context, id string) error {
	return b.mutate(ctx, "item.delete", func(w *work) (string, error) {
		i := w.itemIndex(id)
		if i < 0 {
			return "", &ItemNotFoundError{ItemID: id}
		}
		w.Items = append(w.Items[:i], w.Items[i+1:]...)
		w.AuditLog.PurgeItem(id)
		return id, nil
	})
}

// AdjustStock applies a manual stock correction. Removing more than is on hand
// returns ErrConfirmationRequired unless confirmed.
func (b *Book) AdjustStock(ctx context.Context, id string, delta int, note string, confirmed bool) (Item, error) {
	if delta == 0 {
		err := &ValidationError{Field: "delta", Reason: "must not be zero"}
		obs.ObserveOperation("item.adjust", errorClass(err))
		return Item{}, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		note = "Manual adjustment"
	}
	var adjusted Item
	err := b.mutate(ctx, "item.adjust", func(w *work) (string, error) {
		it, err := w.item(id)
		if err != nil {
			return "", err
		}
		if err := needsConfirmation(it, delta); err != nil {
			if !confirmed {
				return "", err
			}
			obs.Logger().WithField("item_id", id).WithField("delta", delta).Warn("confirmed stock removal below zero")
		}
		it, err = w.manualAdjust(id, delta, note)
		if err != nil {
			return "", err
		}
		adjusted = *it
		return id, nil
	})
	return adjusted, err
}

// InventoryValue is the stock on hand valued at current unit prices; negative
// quantities count as zero.
func (b *Book) InventoryValue() decimal.Decimal {
	total := decimal.Zero
	b.read(func(st *State) {
		for _, it := range st.Items {
			if it.Quantity > 0 {
				total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
			}
		}
	})
	return total
}

// AuditLog returns the full inventory audit trail, newest first.
func (b *Book) AuditLog() []audit.Entry {
	var out []audit.Entry
	b.read(func(st *State) { out = st.AuditLog.Entries() })
	return out
}

// ItemLog returns one item's audit trail, newest first.
func (b *Book) ItemLog(itemID string) []audit.Entry {
	var out []audit.Entry
	b.read(func(st *State) { out = st.AuditLog.ForItem(itemID) })
	return out
}
