package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"tallybook.org/internal/export"
	"tallybook.org/internal/ledger"
)

func runSettle(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return usageError("missing journal or entry id")
	}
	kind, err := ledger.ParseJournalKind(args[0])
	if err != nil {
		return err
	}
	fs := newFlagSet("settle")
	var amount decimalFlag
	fs.Var(&amount, "amount", "Amount to settle (default: the full remainder)")
	if err := fs.Parse(args[2:]); err != nil {
		return usageError(err.Error())
	}
	var amt *decimal.Decimal
	if amount.set {
		amt = &amount.value
	}
	rec, err := a.books.SettlePayment(ctx, kind, args[1], amt)
	if err != nil {
		return err
	}
	return a.printCash([]ledger.CashEntry{rec})
}

func runJournal(_ context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return usageError("missing journal")
	}
	name := args[0]
	fs := newFlagSet("journal")
	period := fs.String("period", "", "Month (YYYY-MM)")
	if err := fs.Parse(args[1:]); err != nil {
		return usageError(err.Error())
	}
	p, err := ledger.ParsePeriod(*period)
	if err != nil {
		return err
	}
	switch name {
	case "sales":
		return a.printEntries(a.books.SalesJournal(p))
	case "purchases":
		return a.printEntries(a.books.PurchasesJournal(p))
	case "receipts":
		return a.printCash(a.books.CashReceipts(p))
	case "disbursements":
		return a.printCash(a.books.CashDisbursements(p))
	case "general":
		return a.printGeneral(a.books.GeneralJournal(p))
	case "receivables":
		return a.printEntries(a.books.Receivables())
	case "payables":
		return a.printEntries(a.books.Payables())
	}
	return usageError("unknown journal " + name)
}

func runSummary(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("summary")
	period := fs.String("period", "", "Month (YYYY-MM)")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	p, err := ledger.ParsePeriod(*period)
	if err != nil {
		return err
	}
	return a.printSummary(a.books.Summary(p))
}

func runMonthly(_ context.Context, a *app, _ []string) error {
	return a.printMonthly(a.books.MonthlyNet())
}

func runAudit(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("audit")
	item := fs.String("item", "", "Only entries for this item id")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if *item != "" {
		return a.printAudit(a.books.ItemLog(*item))
	}
	return a.printAudit(a.books.AuditLog())
}

func runExport(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("export")
	period := fs.String("period", "", "Month (YYYY-MM); all time when empty")
	path := fs.String("o", "", "Output file (default tallybook-<period>.xlsx)")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	p, err := ledger.ParsePeriod(*period)
	if err != nil {
		return err
	}
	if *path == "" {
		*path = export.Filename(p, time.Now())
	}
	f, err := os.Create(*path)
	if err != nil {
		return err
	}
	if err := export.Write(f, a.books, p); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "wrote %s\n", *path)
	return nil
}

func runSettings(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("settings")
	name := fs.String("name", "", "Business name")
	theme := fs.String("theme", "", "light or dark")
	accent := fs.String("accent", "", "Accent colour")
	currency := fs.String("currency", "", "Currency symbol")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	set := visited(fs)
	if len(set) > 0 {
		cur := a.books.Settings()
		next := ledger.Settings{
			BusinessName:   pick(set["name"], *name, cur.BusinessName),
			Theme:          pick(set["theme"], *theme, cur.Theme),
			Accent:         pick(set["accent"], *accent, cur.Accent),
			CurrencySymbol: pick(set["currency"], *currency, cur.CurrencySymbol),
		}
		if err := a.books.UpdateSettings(ctx, next); err != nil {
			return err
		}
	}
	return a.printJSON(a.books.Settings())
}
