package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrItemNotFound         = errors.New("inventory item not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrConfirmationRequired = errors.New("negative stock requires confirmation")
	ErrRollbackFailed       = errors.New("edit rollback failed")
	ErrNotFound             = errors.New("not found")
	ErrNothingToSettle      = errors.New("nothing left to settle")
	ErrSchemaMismatch       = errors.New("snapshot schema mismatch")
)

// ValidationError reports bad input before anything was mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ItemNotFoundError is returned when an inventory link points at a missing item.
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("inventory item %s not found", e.ItemID)
}

func (e *ItemNotFoundError) Unwrap() error { return ErrItemNotFound }

// InsufficientStockError is the ordinary guard on sales.
type InsufficientStockError struct {
	ItemID    string
	ItemName  string
	Required  int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: required %d, available %d", e.ItemName, e.Required, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ConfirmationRequiredError gates operations that would leave an item below zero.
// Re-issuing the call with confirmation proceeds; declining leaves the books untouched.
type ConfirmationRequiredError struct {
	ItemID   string
	ItemName string
	Current  int
	After    int
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("%s would go from %d to %d units; confirmation required", e.ItemName, e.Current, e.After)
}

func (e *ConfirmationRequiredError) Unwrap() error { return ErrConfirmationRequired }

// RollbackError means an edit failed and restoring the original inventory effect
// failed too. It is never retried.
type RollbackError struct {
	TxnID    string
	Apply    error
	Rollback error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("transaction %s: apply failed (%v) and rollback failed (%v)", e.TxnID, e.Apply, e.Rollback)
}

func (e *RollbackError) Unwrap() error { return ErrRollbackFailed }

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// errorClass is the metrics label for an operation outcome.
func errorClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRollbackFailed):
		return "rollback_failed"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrConfirmationRequired):
		return "confirmation_required"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNothingToSettle):
		return "nothing_to_settle"
	default:
		return "error"
	}
}
