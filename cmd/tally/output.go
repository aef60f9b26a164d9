package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"tallybook.org/internal/audit"
	"tallybook.org/internal/ledger"
)

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table prints rows through a tabwriter unless JSON output was requested, in
// which case v is encoded instead.
func (a *app) table(v any, header string, rows func(tw *tabwriter.Writer)) error {
	if a.asJSON {
		return a.printJSON(v)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func day(t time.Time) string { return t.Local().Format(time.DateOnly) }

func (a *app) money(d decimal.Decimal) string {
	return a.books.Settings().FormatMoney(d)
}

func (a *app) printItems(items []ledger.Item) error {
	return a.table(items, "ID\tNAME\tCATEGORY\tPRICE\tQTY", func(tw *tabwriter.Writer) {
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", it.ID, it.Name, it.Category, a.money(it.UnitPrice), it.Quantity)
		}
	})
}

func (a *app) printTransactions(txns []ledger.Transaction) error {
	return a.table(txns, "ID\tDATE\tTYPE\tDESCRIPTION\tAMOUNT\tMETHOD\tITEM\tQTY", func(tw *tabwriter.Writer) {
		for _, t := range txns {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
				t.ID, day(t.Date), t.Type, t.Description, a.money(t.Amount), t.PaymentMethod, t.InvName, t.InvQty)
		}
	})
}

func (a *app) printEntries(entries []ledger.JournalEntry) error {
	return a.table(entries, "ID\tDATE\tDESCRIPTION\tPARTY\tAMOUNT\tPAID\tREMAINING\tMETHOD", func(tw *tabwriter.Writer) {
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				e.ID, day(e.Date), e.Description, e.Party, a.money(e.Amount), a.money(e.PaidAmount), a.money(e.Remaining()), e.PaymentMethod)
		}
	})
}

func (a *app) printCash(rows []ledger.CashEntry) error {
	return a.table(rows, "ID\tDATE\tDESCRIPTION\tAMOUNT\tENTRY\tNOTE", func(tw *tabwriter.Writer) {
		for _, c := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.ID, day(c.Date), c.Description, a.money(c.Amount), c.EntryID, c.Note)
		}
	})
}

func (a *app) printGeneral(lines []ledger.GeneralLine) error {
	return a.table(lines, "DATE\tKIND\tREF\tDESCRIPTION\tAMOUNT\tNOTE", func(tw *tabwriter.Writer) {
		for _, l := range lines {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", day(l.Date), l.Kind, l.RefID, l.Description, a.money(l.Amount), l.Note)
		}
	})
}

func (a *app) printAudit(entries []audit.Entry) error {
	return a.table(entries, "TIME\tITEM\tACTION\tCHANGE\tBALANCE\tNOTE", func(tw *tabwriter.Writer) {
		for _, e := range entries {
			balance := "-"
			if e.BalanceAfter != nil {
				balance = fmt.Sprint(*e.BalanceAfter)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%+d\t%s\t%s\n",
				e.Timestamp.Local().Format(time.DateTime), e.ItemName, e.Action, e.QtyChange, balance, e.Note)
		}
	})
}

func (a *app) printSummary(s ledger.Summary) error {
	if a.asJSON {
		return a.printJSON(s)
	}
	fm := a.books.Settings().FormatMoney
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Period\t%s\n", s.Period)
	fmt.Fprintf(tw, "Revenue\t%s\n", fm(s.Revenue))
	fmt.Fprintf(tw, "Expenses\t%s\n", fm(s.Expenses))
	fmt.Fprintf(tw, "Purchases\t%s\n", fm(s.Purchases))
	fmt.Fprintf(tw, "Cost of goods sold\t%s\n", fm(s.InventoryCost))
	fmt.Fprintf(tw, "Net\t%s\n", fm(s.Net))
	fmt.Fprintf(tw, "Receivable\t%s\n", fm(s.Receivable))
	fmt.Fprintf(tw, "Payable\t%s\n", fm(s.Payable))
	fmt.Fprintf(tw, "Inventory value\t%s\n", fm(s.InventoryValue))
	fmt.Fprintf(tw, "Low-stock items\t%d\n", s.LowStock)
	return tw.Flush()
}

func (a *app) printMonthly(months []ledger.MonthNet) error {
	return a.table(months, "MONTH\tNET", func(tw *tabwriter.Writer) {
		for _, m := range months {
			fmt.Fprintf(tw, "%s\t%s\n", m.Period, a.money(m.Net))
		}
	})
}
