package ledger

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Line kinds of the general journal.
const (
	LineTransaction  = "transaction"
	LineReceipt      = "receipt"
	LineDisbursement = "disbursement"
)

// GeneralLine is one row of the general journal. RefID points back to the record the
// row was derived from; EntryID and TxnID carry the linkage of cash rows.
type GeneralLine struct {
	Kind          string          `json:"kind"`
	RefID         string          `json:"ref_id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TxnType         `json:"type,omitempty"`
	ItemName      string          `json:"item_name,omitempty"`
	Quantity      int             `json:"quantity,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
	Party         string          `json:"party,omitempty"`
	EntryID       string          `json:"entry_id,omitempty"`
	TxnID         string          `json:"txn_id,omitempty"`
	Note          string          `json:"note,omitempty"`
}

// GeneralJournal merges all transactions, receipts and disbursements in period into
// one newest-first view. It holds no state of its own and is rebuilt on every call.
func (b *Book) GeneralJournal(p Period) []GeneralLine {
	var lines []GeneralLine
	b.read(func(st *State) {
		for _, t := range st.Transactions {
			if !p.Contains(t.Date) {
				continue
			}
			lines = append(lines, GeneralLine{
				Kind:          LineTransaction,
				RefID:         t.ID,
				Date:          t.Date,
				Description:   t.Description,
				Amount:        t.Amount,
				Type:          t.Type,
				ItemName:      t.InvName,
				Quantity:      t.InvQty,
				PaymentMethod: t.PaymentMethod,
				Party:         partyOf(t),
				TxnID:         t.ID,
			})
		}
		lines = appendCash(lines, LineReceipt, st.Receipts, p)
		lines = appendCash(lines, LineDisbursement, st.Disbursements, p)
	})
	slices.SortStableFunc(lines, func(a, b GeneralLine) int {
		return cmp.Compare(b.Date.UnixNano(), a.Date.UnixNano())
	})
	return lines
}

func appendCash(lines []GeneralLine, kind string, cash []CashEntry, p Period) []GeneralLine {
	for _, c := range cash {
		if !p.Contains(c.Date) {
			continue
		}
		lines = append(lines, GeneralLine{
			Kind:        kind,
			RefID:       c.ID,
			Date:        c.Date,
			Description: c.Description,
			Amount:      c.Amount,
			EntryID:     c.EntryID,
			TxnID:       c.TxnID,
			Note:        c.Note,
		})
	}
	return lines
}
