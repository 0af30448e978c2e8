// Package reconcile combines the provider's reported balance with locally
// computed sales into cost and profit figures.
package reconcile

import "github.com/shopspring/decimal"

// BalanceSnapshot is the provider's balance answer. Exactly one of Amount or
// Error is meaningful: a non-empty Error marks the balance as unavailable.
type BalanceSnapshot struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Available reports whether the snapshot carries a usable amount.
func (b BalanceSnapshot) Available() bool {
	return b.Error == ""
}

// Unavailable builds a snapshot representing a failed balance lookup.
func Unavailable(reason string) BalanceSnapshot {
	if reason == "" {
		reason = "balance unavailable"
	}
	return BalanceSnapshot{Error: reason}
}

// Result holds the reconciled cost and profit.
type Result struct {
	Cost   decimal.Decimal
	Profit decimal.Decimal
}

// Reconcile treats the provider balance as spend. Profit is clamped at zero
// when spend exceeds sales; an unavailable balance yields zero cost and profit.
func Reconcile(salesTotal decimal.Decimal, balance BalanceSnapshot) Result {
	if !balance.Available() {
		return Result{Cost: decimal.Zero, Profit: decimal.Zero}
	}
	cost := balance.Amount
	profit := decimal.Zero
	if salesTotal.GreaterThan(cost) {
		profit = salesTotal.Sub(cost)
	}
	return Result{Cost: cost, Profit: profit}
}
