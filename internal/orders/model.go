// Package orders filters commerce orders and aggregates them into dashboard
// statistics.
package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Financial statuses reported by the commerce platform.
const (
	FinancialPending   = "PENDING"
	FinancialCancelled = "CANCELLED"
)

// Fulfillment statuses reported by the commerce platform.
const (
	FulfillmentPending    = "PENDING"
	FulfillmentProcessing = "PROCESSING"
	FulfillmentInProgress = "IN_PROGRESS"
	FulfillmentFulfilled  = "FULFILLED"
	FulfillmentPartial    = "PARTIAL"
	FulfillmentCancelled  = "CANCELLED"
)

// Order is an immutable snapshot of a store order.
type Order struct {
	ID                string
	Name              string
	CreatedAt         time.Time
	TotalAmount       decimal.Decimal
	FinancialStatus   string
	FulfillmentStatus string
	LineItems         []LineItem
}

// LineItem is one purchased product line. A nil UnitCompareAtPrice counts as zero.
type LineItem struct {
	Title              string
	Quantity           int
	UnitPrice          decimal.Decimal
	UnitCompareAtPrice *decimal.Decimal
}

// FirstTitle returns the first line item's title, or "" when the order has none.
func (o Order) FirstTitle() string {
	if len(o.LineItems) == 0 {
		return ""
	}
	return o.LineItems[0].Title
}

// LegacyID extracts the numeric tail of a global id such as
// "gid://shopify/Order/1234".
func LegacyID(id string) string {
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

func (li LineItem) cost() decimal.Decimal {
	if li.UnitCompareAtPrice == nil || li.Quantity <= 0 {
		return decimal.Zero
	}
	return li.UnitCompareAtPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}
