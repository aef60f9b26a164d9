package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TxnType tells a sale (revenue) from a purchase or operating expense (expense).
type TxnType string

const (
	Revenue TxnType = "revenue"
	Expense TxnType = "expense"
)

// PaymentMethod is how a transaction was settled at creation time.
type PaymentMethod string

const (
	Cash   PaymentMethod = "Cash"
	Credit PaymentMethod = "Credit"
)

// JournalKind selects the Sales or Purchases journal.
type JournalKind string

const (
	KindSale     JournalKind = "sale"
	KindPurchase JournalKind = "purchase"
)

// ParseJournalKind accepts "sale"/"sales" and "purchase"/"purchases".
func ParseJournalKind(s string) (JournalKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sale", "sales":
		return KindSale, nil
	case "purchase", "purchases":
		return KindPurchase, nil
	}
	return "", &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown journal %q", s)}
}

// Item is a stock-keeping record owned by the inventory ledger. Quantity may go
// negative after a confirmed purchase reversal or manual removal.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ItemInput carries the user-editable item fields. A nil Quantity leaves the
// quantity unchanged on edit and means zero on create.
type ItemInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Category    string          `json:"category" validate:"max=200"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    *int            `json:"quantity" validate:"omitempty,gte=0"`
}

// Transaction is a monetary event. The inventory link (InvID/InvQty) is held by id
// and resolved against the inventory ledger whenever it is used.
type Transaction struct {
	ID            string          `json:"id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TxnType         `json:"type"`
	Date          time.Time       `json:"date"`
	InvID         string          `json:"inv_id,omitempty"`
	InvQty        int             `json:"inv_qty,omitempty"`
	InvName       string          `json:"inv_name,omitempty"`
	InvCost       decimal.Decimal `json:"inv_cost"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Customer      string          `json:"customer,omitempty"`
	Supplier      string          `json:"supplier,omitempty"`
}

// Linked reports whether the transaction moves inventory.
func (t Transaction) Linked() bool { return t.InvID != "" }

// TransactionInput is what a caller submits to create or edit a transaction.
type TransactionInput struct {
	Description   string          `json:"description" validate:"required,max=500"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TxnType         `json:"type" validate:"required,oneof=revenue expense"`
	Date          time.Time       `json:"date"`
	InvID         string          `json:"inv_id"`
	InvQty        int             `json:"inv_qty"`
	PaymentMethod PaymentMethod   `json:"payment_method" validate:"omitempty,oneof=Cash Credit"`
	Customer      string          `json:"customer" validate:"max=200"`
	Supplier      string          `json:"supplier" validate:"max=200"`
}

// JournalEntry is a Sales or Purchases journal row derived from one transaction.
type JournalEntry struct {
	ID            string          `json:"id"`
	TxnID         string          `json:"txn_id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	ItemID        string          `json:"item_id,omitempty"`
	ItemName      string          `json:"item_name,omitempty"`
	Quantity      int             `json:"quantity,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Paid          bool            `json:"paid"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Party         string          `json:"party,omitempty"`
}

// Remaining is the unsettled part of the entry (receivable or payable).
func (e JournalEntry) Remaining() decimal.Decimal {
	return e.Amount.Sub(e.PaidAmount)
}

// CashEntry is a Cash Receipt or Cash Disbursement. EntryID links it to the Sales or
// Purchases entry it settles and is empty for stand-alone operating expenses.
type CashEntry struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	EntryID     string          `json:"entry_id,omitempty"`
	TxnID       string          `json:"txn_id,omitempty"`
	Note        string          `json:"note"`
}

// Settings is the display record kept next to the books.
type Settings struct {
	BusinessName   string `json:"business_name" validate:"max=200"`
	Theme          string `json:"theme" validate:"omitempty,oneof=light dark"`
	Accent         string `json:"accent" validate:"max=32"`
	CurrencySymbol string `json:"currency_symbol" validate:"max=8"`
}

// FormatMoney renders an amount with the configured currency symbol.
func (s Settings) FormatMoney(d decimal.Decimal) string {
	sym := s.CurrencySymbol
	if sym == "" {
		sym = "$"
	}
	if d.IsNegative() {
		return "-" + sym + d.Abs().StringFixed(2)
	}
	return sym + d.StringFixed(2)
}

// Period is a calendar month. The zero Period matches every date.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod reads "YYYY-MM"; an empty string yields the zero (all-time) Period.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Period{}, nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, &ValidationError{Field: "period", Reason: "expected YYYY-MM"}
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// IsZero reports whether p is the all-time period.
func (p Period) IsZero() bool { return p.Year == 0 && p.Month == 0 }

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	if p.IsZero() {
		return true
	}
	return t.Year() == p.Year && t.Month() == p.Month
}

func (p Period) String() string {
	if p.IsZero() {
		return "all"
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
