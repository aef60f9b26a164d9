package ledger

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// Summary holds the dashboard aggregates for one period.
type Summary struct {
	Period         string          `json:"period"`
	Revenue        decimal.Decimal `json:"revenue"`
	Expenses       decimal.Decimal `json:"expenses"`
	Purchases      decimal.Decimal `json:"purchases"`
	InventoryCost  decimal.Decimal `json:"inventory_cost"`
	Net            decimal.Decimal `json:"net"`
	Receivable     decimal.Decimal `json:"receivable"`
	Payable        decimal.Decimal `json:"payable"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	LowStock       int             `json:"low_stock"`
}

// MonthNet is the net result of one calendar month.
type MonthNet struct {
	Period string          `json:"period"`
	Net    decimal.Decimal `json:"net"`
}

type totals struct {
	revenue, expenses, purchases, cogs decimal.Decimal
}

func (t *totals) add(txn Transaction) {
	switch {
	case txn.Type == Revenue:
		t.revenue = t.revenue.Add(txn.Amount)
		t.cogs = t.cogs.Add(txn.InvCost)
	case txn.Linked():
		t.purchases = t.purchases.Add(txn.Amount)
	default:
		t.expenses = t.expenses.Add(txn.Amount)
	}
}

// net is revenue less operating expenses and the cost of goods sold. Inventory
// purchases are capitalised, so they only reach the result through COGS.
func (t *totals) net() decimal.Decimal {
	return t.revenue.Sub(t.expenses).Sub(t.cogs)
}

func newTotals() totals {
	return totals{revenue: decimal.Zero, expenses: decimal.Zero, purchases: decimal.Zero, cogs: decimal.Zero}
}

// Summary computes the aggregates for transactions dated in p. Receivables,
// payables, stock value and the low-stock count are point-in-time and ignore p.
func (b *Book) Summary(p Period) Summary {
	sum := Summary{Period: p.String(), Receivable: decimal.Zero, Payable: decimal.Zero, InventoryValue: decimal.Zero}
	b.read(func(st *State) {
		tot := newTotals()
		for _, t := range st.Transactions {
			if p.Contains(t.Date) {
				tot.add(t)
			}
		}
		sum.Revenue, sum.Expenses, sum.Purchases, sum.InventoryCost = tot.revenue, tot.expenses, tot.purchases, tot.cogs
		sum.Net = tot.net()

		for _, e := range st.Sales {
			sum.Receivable = sum.Receivable.Add(e.Remaining())
		}
		for _, e := range st.Purchases {
			sum.Payable = sum.Payable.Add(e.Remaining())
		}
		for _, it := range st.Items {
			if it.Quantity > 0 {
				sum.InventoryValue = sum.InventoryValue.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
			}
			if it.Quantity <= b.lowStock {
				sum.LowStock++
			}
		}
	})
	return sum
}

// MonthlyNet returns the net result of every month that has transactions, oldest
// first.
func (b *Book) MonthlyNet() []MonthNet {
	byMonth := map[string]*totals{}
	b.read(func(st *State) {
		for _, t := range st.Transactions {
			key := PeriodOf(t.Date).String()
			tot, ok := byMonth[key]
			if !ok {
				nt := newTotals()
				tot = &nt
				byMonth[key] = tot
			}
			tot.add(t)
		}
	})
	out := make([]MonthNet, 0, len(byMonth))
	for k, tot := range byMonth {
		out = append(out, MonthNet{Period: k, Net: tot.net()})
	}
	slices.SortFunc(out, func(a, b MonthNet) int { return cmp.Compare(a.Period, b.Period) })
	return out
}
