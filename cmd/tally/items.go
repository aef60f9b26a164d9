package main

import (
	"context"
	"flag"
	"fmt"

	"tallybook.org/internal/ledger"
)

func runItem(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return usageError("missing subcommand")
	}
	sub, args := args[0], args[1:]
	switch sub {
	case "add":
		return itemAdd(ctx, a, args)
	case "edit":
		return itemEdit(ctx, a, args)
	case "rm":
		id, _, err := splitID(args)
		if err != nil {
			return err
		}
		if err := a.books.DeleteItem(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted item %s\n", id)
		return nil
	case "adjust":
		return itemAdjust(ctx, a, args)
	case "list":
		fs := newFlagSet("item list")
		low := fs.Bool("low", false, "Only items at or below the low-stock threshold")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		items := a.books.Items()
		if *low {
			items = a.books.LowStock()
		}
		return a.printItems(items)
	case "log":
		id, _, err := splitID(args)
		if err != nil {
			return err
		}
		if _, err := a.books.Item(id); err != nil {
			return err
		}
		return a.printAudit(a.books.ItemLog(id))
	}
	return usageError("unknown subcommand " + sub)
}

type itemFlags struct {
	name, desc, category *string
	price                decimalFlag
	qty                  *int
}

func bindItemFlags(fs *flag.FlagSet) *itemFlags {
	f := &itemFlags{
		name:     fs.String("name", "", "Item name"),
		desc:     fs.String("desc", "", "Description"),
		category: fs.String("category", "", "Category"),
		qty:      fs.Int("qty", 0, "Quantity on hand"),
	}
	fs.Var(&f.price, "price", "Unit price")
	return f
}

func itemAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("item add")
	f := bindItemFlags(fs)
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	in := ledger.ItemInput{
		Name:        *f.name,
		Description: *f.desc,
		Category:    *f.category,
		UnitPrice:   f.price.value,
		Quantity:    f.qty,
	}
	it, err := a.books.CreateItem(ctx, in)
	if err != nil {
		return err
	}
	return a.printItems([]ledger.Item{it})
}

func itemEdit(ctx context.Context, a *app, args []string) error {
	id, rest, err := splitID(args)
	if err != nil {
		return err
	}
	cur, err := a.books.Item(id)
	if err != nil {
		return err
	}
	fs := newFlagSet("item edit")
	f := bindItemFlags(fs)
	if err := fs.Parse(rest); err != nil {
		return usageError(err.Error())
	}
	set := visited(fs)
	in := ledger.ItemInput{
		Name:        pick(set["name"], *f.name, cur.Name),
		Description: pick(set["desc"], *f.desc, cur.Description),
		Category:    pick(set["category"], *f.category, cur.Category),
		UnitPrice:   pick(f.price.set, f.price.value, cur.UnitPrice),
	}
	if set["qty"] {
		in.Quantity = f.qty
	}
	it, err := a.books.EditItem(ctx, id, in)
	if err != nil {
		return err
	}
	return a.printItems([]ledger.Item{it})
}

func itemAdjust(ctx context.Context, a *app, args []string) error {
	id, rest, err := splitID(args)
	if err != nil {
		return err
	}
	fs := newFlagSet("item adjust")
	delta := fs.Int("delta", 0, "Units to add (negative to remove)")
	note := fs.String("note", "", "Reason recorded in the audit log")
	if err := fs.Parse(rest); err != nil {
		return usageError(err.Error())
	}
	var it ledger.Item
	err = a.confirm(func(confirmed bool) error {
		var err error
		it, err = a.books.AdjustStock(ctx, id, *delta, *note, confirmed)
		return err
	})
	if err != nil {
		return err
	}
	return a.printItems([]ledger.Item{it})
}

func pick[T any](set bool, v, fallback T) T {
	if set {
		return v
	}
	return fallback
}
