package main

import (
	"context"
	"flag"
	"fmt"

	"tallybook.org/internal/ledger"
)

func runTxn(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return usageError("missing subcommand")
	}
	sub, args := args[0], args[1:]
	switch sub {
	case "add":
		fs := newFlagSet("txn add")
		f := bindTxnFlags(fs)
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		t, err := a.books.CreateTransaction(ctx, f.input(nil, nil))
		if err != nil {
			return err
		}
		return a.printTransactions([]ledger.Transaction{t})
	case "edit":
		id, rest, err := splitID(args)
		if err != nil {
			return err
		}
		cur, err := a.books.Transaction(id)
		if err != nil {
			return err
		}
		fs := newFlagSet("txn edit")
		f := bindTxnFlags(fs)
		if err := fs.Parse(rest); err != nil {
			return usageError(err.Error())
		}
		in := f.input(&cur, visited(fs))
		var t ledger.Transaction
		err = a.confirm(func(confirmed bool) error {
			var err error
			t, err = a.books.EditTransaction(ctx, id, in, confirmed)
			return err
		})
		if err != nil {
			return err
		}
		return a.printTransactions([]ledger.Transaction{t})
	case "rm":
		id, _, err := splitID(args)
		if err != nil {
			return err
		}
		err = a.confirm(func(confirmed bool) error {
			return a.books.DeleteTransaction(ctx, id, confirmed)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted transaction %s\n", id)
		return nil
	case "list":
		fs := newFlagSet("txn list")
		period := fs.String("period", "", "Month to list (YYYY-MM)")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		p, err := ledger.ParsePeriod(*period)
		if err != nil {
			return err
		}
		var out []ledger.Transaction
		for _, t := range a.books.Transactions() {
			if p.Contains(t.Date) {
				out = append(out, t)
			}
		}
		return a.printTransactions(out)
	}
	return usageError("unknown subcommand " + sub)
}

type txnFlags struct {
	desc, typ, item, method, customer, supplier *string
	qty                                         *int
	amount                                      decimalFlag
	date                                        dateFlag
}

func bindTxnFlags(fs *flag.FlagSet) *txnFlags {
	f := &txnFlags{
		desc:     fs.String("desc", "", "Description"),
		typ:      fs.String("type", "", "revenue or expense"),
		item:     fs.String("item", "", "Linked inventory item id"),
		method:   fs.String("method", "", "Cash or Credit (default Cash)"),
		customer: fs.String("customer", "", "Customer name (sales)"),
		supplier: fs.String("supplier", "", "Supplier name (purchases)"),
		qty:      fs.Int("qty", 0, "Units of the linked item"),
	}
	fs.Var(&f.amount, "amount", "Transaction amount")
	fs.Var(&f.date, "date", "Transaction date (YYYY-MM-DD, default today)")
	return f
}

// input builds the submission. On edit, flags not given keep the current values;
// -item "" unlinks the transaction.
func (f *txnFlags) input(cur *ledger.Transaction, set map[string]bool) ledger.TransactionInput {
	if cur == nil {
		return ledger.TransactionInput{
			Description:   *f.desc,
			Amount:        f.amount.value,
			Type:          ledger.TxnType(*f.typ),
			Date:          f.date.value,
			InvID:         *f.item,
			InvQty:        *f.qty,
			PaymentMethod: ledger.PaymentMethod(*f.method),
			Customer:      *f.customer,
			Supplier:      *f.supplier,
		}
	}
	return ledger.TransactionInput{
		Description:   pick(set["desc"], *f.desc, cur.Description),
		Amount:        pick(f.amount.set, f.amount.value, cur.Amount),
		Type:          pick(set["type"], ledger.TxnType(*f.typ), cur.Type),
		Date:          pick(set["date"], f.date.value, cur.Date),
		InvID:         pick(set["item"], *f.item, cur.InvID),
		InvQty:        pick(set["qty"], *f.qty, cur.InvQty),
		PaymentMethod: pick(set["method"], ledger.PaymentMethod(*f.method), cur.PaymentMethod),
		Customer:      pick(set["customer"], *f.customer, cur.Customer),
		Supplier:      pick(set["supplier"], *f.supplier, cur.Supplier),
	}
}
