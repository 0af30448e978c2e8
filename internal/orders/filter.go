package orders

import (
	"strings"
	"time"

	"github.com/panelsync/panelsync/internal/daterange"
	"github.com/panelsync/panelsync/internal/shared"
)

// Criteria narrows an order set. Every populated field must match.
type Criteria struct {
	DateRange *daterange.Range
	Status    StatusFilter
	// Search is matched against the first line item's title only.
	Search string
}

// Filter returns the orders satisfying c, preserving input order. The input
// slice is not modified.
func Filter(orders []Order, c Criteria) []Order {
	needle := ""
	if c.Search != "" {
		needle = shared.Lower(c.Search)
	}
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if c.DateRange != nil && !c.DateRange.Contains(o.CreatedAt) {
			continue
		}
		if !c.Status.Matches(o) {
			continue
		}
		if needle != "" && !strings.Contains(shared.Lower(o.FirstTitle()), needle) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Counts holds the number of orders behind each status tab.
type Counts struct {
	Today      int `json:"today"`
	All        int `json:"all"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Partial    int `json:"partial"`
	Cancelled  int `json:"cancelled"`
}

// CountByStatus tallies the tab counters. Today uses the same interval as
// daterange.Today.
func CountByStatus(orders []Order, now time.Time) Counts {
	today := daterange.Resolve(daterange.Today, now)
	var c Counts
	for _, o := range orders {
		c.All++
		if today.Contains(o.CreatedAt) {
			c.Today++
		}
		switch {
		case StatusPending.Matches(o):
			c.Pending++
		case StatusCancelled.Matches(o):
			c.Cancelled++
		}
		switch {
		case StatusProcessing.Matches(o):
			c.Processing++
		case StatusInProgress.Matches(o):
			c.InProgress++
		case StatusCompleted.Matches(o):
			c.Completed++
		case StatusPartial.Matches(o):
			c.Partial++
		}
	}
	return c
}
