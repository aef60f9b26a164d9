// Package export renders the books as an .xlsx workbook, one sheet per ledger.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"tallybook.org/internal/audit"
	"tallybook.org/internal/ledger"
)

// Sheet names in workbook order.
const (
	SheetGeneral       = "General"
	SheetSales         = "Sales"
	SheetPurchases     = "Purchases"
	SheetReceipts      = "Receipts"
	SheetDisbursements = "Disbursements"
	SheetInventory     = "Inventory"
	SheetAuditLog      = "Audit Log"
)

// ContentType is the MIME type of the written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Books is the read side of the ledger the workbook is built from.
type Books interface {
	GeneralJournal(p ledger.Period) []ledger.GeneralLine
	SalesJournal(p ledger.Period) []ledger.JournalEntry
	PurchasesJournal(p ledger.Period) []ledger.JournalEntry
	CashReceipts(p ledger.Period) []ledger.CashEntry
	CashDisbursements(p ledger.Period) []ledger.CashEntry
	Items() []ledger.Item
	AuditLog() []audit.Entry
}

const dateLayout = "2006-01-02 15:04"

// Write builds the workbook for period p and writes it to w.
func Write(w io.Writer, b Books, p ledger.Period) error {
	f, err := Build(b, p)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Build assembles the workbook in memory.
func Build(b Books, p ledger.Period) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetGeneral); err != nil {
		f.Close()
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	sw := &sheetWriter{f: f, header: header}

	general := [][]any{{"Date", "Kind", "Description", "Amount", "Type", "Item", "Qty", "Payment", "Party", "Txn", "Entry", "Note"}}
	for _, l := range b.GeneralJournal(p) {
		general = append(general, []any{
			l.Date.Format(dateLayout), l.Kind, l.Description, money(l.Amount), string(l.Type),
			l.ItemName, blankZero(l.Quantity), string(l.PaymentMethod), l.Party, l.TxnID, l.EntryID, l.Note,
		})
	}
	sw.sheet(SheetGeneral, general)
	sw.sheet(SheetSales, journalRows("Customer", b.SalesJournal(p)))
	sw.sheet(SheetPurchases, journalRows("Supplier", b.PurchasesJournal(p)))
	sw.sheet(SheetReceipts, cashRows(b.CashReceipts(p)))
	sw.sheet(SheetDisbursements, cashRows(b.CashDisbursements(p)))

	inventory := [][]any{{"Name", "Category", "Description", "Unit Price", "Quantity", "Value"}}
	for _, it := range b.Items() {
		value := decimal.Zero
		if it.Quantity > 0 {
			value = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		}
		inventory = append(inventory, []any{it.Name, it.Category, it.Description, money(it.UnitPrice), it.Quantity, money(value)})
	}
	sw.sheet(SheetInventory, inventory)

	log := [][]any{{"Time", "Item", "Action", "Change", "Balance", "Txn", "Note"}}
	for _, e := range b.AuditLog() {
		var balance any = ""
		if e.BalanceAfter != nil {
			balance = *e.BalanceAfter
		}
		log = append(log, []any{e.Timestamp.Format(dateLayout), e.ItemName, string(e.Action), e.QtyChange, balance, e.TxnID, e.Note})
	}
	sw.sheet(SheetAuditLog, log)

	if sw.err != nil {
		f.Close()
		return nil, sw.err
	}
	return f, nil
}

type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

// sheet writes rows starting at A1, the first row styled as a header. The first
// error sticks and later calls do nothing.
func (s *sheetWriter) sheet(name string, rows [][]any) {
	if s.err != nil {
		return
	}
	if idx, _ := s.f.GetSheetIndex(name); idx < 0 {
		if _, err := s.f.NewSheet(name); err != nil {
			s.err = err
			return
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			s.err = err
			return
		}
		if err := s.f.SetSheetRow(name, cell, &row); err != nil {
			s.err = fmt.Errorf("sheet %s row %d: %w", name, i+1, err)
			return
		}
	}
	if len(rows) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err := s.f.SetCellStyle(name, "A1", end, s.header); err != nil {
			s.err = err
		}
	}
}

func journalRows(partyLabel string, entries []ledger.JournalEntry) [][]any {
	rows := [][]any{{"Date", "Description", "Item", "Qty", partyLabel, "Payment", "Amount", "Paid", "Remaining", "Status", "Txn"}}
	for _, e := range entries {
		status := "Open"
		if e.Paid {
			status = "Paid"
		}
		rows = append(rows, []any{
			e.Date.Format(dateLayout), e.Description, e.ItemName, blankZero(e.Quantity), e.Party,
			string(e.PaymentMethod), money(e.Amount), money(e.PaidAmount), money(e.Remaining()), status, e.TxnID,
		})
	}
	return rows
}

func cashRows(entries []ledger.CashEntry) [][]any {
	rows := [][]any{{"Date", "Description", "Amount", "Note", "Entry", "Txn"}}
	for _, c := range entries {
		rows = append(rows, []any{c.Date.Format(dateLayout), c.Description, money(c.Amount), c.Note, c.EntryID, c.TxnID})
	}
	return rows
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func blankZero(n int) any {
	if n == 0 {
		return ""
	}
	return n
}

// Filename suggests a download name for the period.
func Filename(p ledger.Period, now time.Time) string {
	if p.IsZero() {
		return fmt.Sprintf("tallybook-%s.xlsx", now.Format("20060102"))
	}
	return fmt.Sprintf("tallybook-%s.xlsx", p)
}
