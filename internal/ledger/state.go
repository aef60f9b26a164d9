package ledger

import (
	"slices"

	"tallybook.org/internal/audit"
)

// SchemaVersion is the snapshot layout this package reads and writes.
const SchemaVersion = 1

// Logical keys of the persisted documents.
const (
	KeyTransactions  = "transactions"
	KeyInventory     = "inventory"
	KeyInventoryLog  = "inventory_log"
	KeyPurchases     = "purchases_journal"
	KeySales         = "sales_journal"
	KeyReceipts      = "cash_receipts"
	KeyDisbursements = "cash_disbursements"
	KeySettings      = "settings"
)

// State is the whole application state. Transactions are kept in creation order;
// journals, cash records and the audit log are newest first.
type State struct {
	Transactions  []Transaction  `json:"transactions"`
	Items         []Item         `json:"inventory"`
	AuditLog      audit.Log      `json:"inventory_log"`
	Purchases     []JournalEntry `json:"purchases_journal"`
	Sales         []JournalEntry `json:"sales_journal"`
	Receipts      []CashEntry    `json:"cash_receipts"`
	Disbursements []CashEntry    `json:"cash_disbursements"`
	Settings      Settings       `json:"settings"`
}

// Clone returns a copy that shares no mutable memory with s.
func (s *State) Clone() *State {
	return &State{
		Transactions:  slices.Clone(s.Transactions),
		Items:         slices.Clone(s.Items),
		AuditLog:      s.AuditLog.Clone(),
		Purchases:     slices.Clone(s.Purchases),
		Sales:         slices.Clone(s.Sales),
		Receipts:      slices.Clone(s.Receipts),
		Disbursements: slices.Clone(s.Disbursements),
		Settings:      s.Settings,
	}
}

// Snapshot is the unit a Store loads and saves: every ledger at once.
type Snapshot struct {
	Version int `json:"version"`
	State
}

// NewSnapshot wraps a copy of st at the current schema version.
func NewSnapshot(st *State) *Snapshot {
	return &Snapshot{Version: SchemaVersion, State: *st.Clone()}
}

// Document pairs a logical key with a pointer to the field it persists. Value can be
// handed to json.Marshal and json.Unmarshal alike.
type Document struct {
	Key   string
	Value any
}

// Documents lists the persisted layout of the snapshot in a stable order.
func (s *Snapshot) Documents() []Document {
	return []Document{
		{KeyTransactions, &s.Transactions},
		{KeyInventory, &s.Items},
		{KeyInventoryLog, &s.AuditLog},
		{KeyPurchases, &s.Purchases},
		{KeySales, &s.Sales},
		{KeyReceipts, &s.Receipts},
		{KeyDisbursements, &s.Disbursements},
		{KeySettings, &s.Settings},
	}
}

func (s *State) itemIndex(id string) int {
	return slices.IndexFunc(s.Items, func(it Item) bool { return it.ID == id })
}

func (s *State) txnIndex(id string) int {
	return slices.IndexFunc(s.Transactions, func(t Transaction) bool { return t.ID == id })
}

func (s *State) journal(kind JournalKind) *[]JournalEntry {
	if kind == KindSale {
		return &s.Sales
	}
	return &s.Purchases
}

func (s *State) cashBook(kind JournalKind) *[]CashEntry {
	if kind == KindSale {
		return &s.Receipts
	}
	return &s.Disbursements
}
