package orders

import (
	"github.com/shopspring/decimal"

	"github.com/panelsync/panelsync/internal/reconcile"
	"github.com/panelsync/panelsync/internal/shared"
)

// Statistics summarises an order set. It is derived on every call and never stored.
type Statistics struct {
	SalesTotal  shared.Money `json:"salesTotal"`
	OrderCount  int          `json:"orderCount"`
	CostTotal   shared.Money `json:"costTotal"`
	ProfitTotal shared.Money `json:"profitTotal"`
}

// SalesTotal sums the order totals rounded to two places.
func SalesTotal(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.TotalAmount)
	}
	return total.Round(2)
}

// CostTotal sums compare-at price times quantity over every line item.
func CostTotal(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		for _, li := range o.LineItems {
			total = total.Add(li.cost())
		}
	}
	return total
}

// Aggregate computes the statistics for orders, which callers pass already
// filtered. Profit comes from reconciling sales against the provider balance.
func Aggregate(orders []Order, balance reconcile.BalanceSnapshot) Statistics {
	sales := SalesTotal(orders)
	result := reconcile.Reconcile(sales, balance)
	return Statistics{
		SalesTotal:  shared.NewMoney(sales),
		OrderCount:  len(orders),
		CostTotal:   shared.NewMoney(CostTotal(orders)),
		ProfitTotal: shared.NewMoney(result.Profit),
	}
}
