package orders

import (
	"errors"
	"strings"
)

// StatusFilter selects orders by one of the dashboard status tabs.
type StatusFilter string

// Status tabs. Pending and Cancelled test the financial status; the others
// test the fulfillment status.
const (
	StatusAll        StatusFilter = "all"
	StatusPending    StatusFilter = "pending"
	StatusProcessing StatusFilter = "processing"
	StatusInProgress StatusFilter = "inProgress"
	StatusCompleted  StatusFilter = "completed"
	StatusPartial    StatusFilter = "partial"
	StatusCancelled  StatusFilter = "cancelled"
)

// ErrUnknownStatus is returned by ParseStatus for unsupported tab names.
var ErrUnknownStatus = errors.New("orders: unknown status filter")

var statusAliases = map[string]StatusFilter{
	"":            StatusAll,
	"all":         StatusAll,
	"pending":     StatusPending,
	"processing":  StatusProcessing,
	"inprogress":  StatusInProgress,
	"in_progress": StatusInProgress,
	"completed":   StatusCompleted,
	"fulfilled":   StatusCompleted,
	"partial":     StatusPartial,
	"cancelled":   StatusCancelled,
	"canceled":    StatusCancelled,
}

// ParseStatus normalises a query value into a StatusFilter.
func ParseStatus(raw string) (StatusFilter, error) {
	status, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", ErrUnknownStatus
	}
	return status, nil
}

// Matches reports whether the order belongs to the status tab. Unknown filters match nothing.
func (s StatusFilter) Matches(o Order) bool {
	switch s {
	case "", StatusAll:
		return true
	case StatusPending:
		return o.FinancialStatus == FinancialPending
	case StatusCancelled:
		return o.FinancialStatus == FinancialCancelled
	case StatusProcessing:
		return o.FulfillmentStatus == FulfillmentProcessing
	case StatusInProgress:
		return o.FulfillmentStatus == FulfillmentInProgress
	case StatusCompleted:
		return o.FulfillmentStatus == FulfillmentFulfilled
	case StatusPartial:
		return o.FulfillmentStatus == FulfillmentPartial
	default:
		return false
	}
}

// StatusLabel is the human label shown for a fulfillment status.
func StatusLabel(fulfillmentStatus string) string {
	switch fulfillmentStatus {
	case FulfillmentFulfilled:
		return "Completed"
	case FulfillmentPending:
		return "Pending"
	case FulfillmentInProgress:
		return "In Progress"
	case FulfillmentProcessing:
		return "Processing"
	case FulfillmentPartial:
		return "Partial"
	case FulfillmentCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}
