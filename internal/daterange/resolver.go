// Package daterange resolves the dashboard's named range tabs into concrete intervals.
package daterange

import "time"

// ID names a dashboard range tab.
type ID string

// Supported range identifiers, in tab order.
const (
	Today      ID = "today"
	Yesterday  ID = "yesterday"
	Last7Days  ID = "7days"
	Last30Days ID = "30days"
	Last90Days ID = "90days"
	Last365    ID = "365days"
)

// Tab pairs a range identifier with its display label.
type Tab struct {
	ID    ID     `json:"id"`
	Label string `json:"label"`
}

var tabs = []Tab{
	{ID: Today, Label: "Today"},
	{ID: Yesterday, Label: "Yesterday"},
	{ID: Last7Days, Label: "Last 7 Days"},
	{ID: Last30Days, Label: "Last 30 Days"},
	{ID: Last90Days, Label: "Last 90 Days"},
	{ID: Last365, Label: "Last 365 Days"},
}

var trailingDays = map[ID]int{
	Last7Days:  7,
	Last30Days: 30,
	Last90Days: 90,
	Last365:    365,
}

// Range is a closed interval; both Start and End are inclusive.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies inside the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Tabs returns the range tabs in display order.
func Tabs() []Tab {
	out := make([]Tab, len(tabs))
	copy(out, tabs)
	return out
}

// Known reports whether id is one of the supported identifiers.
func Known(id ID) bool {
	for _, tab := range tabs {
		if tab.ID == id {
			return true
		}
	}
	return false
}

// Resolve maps id onto a concrete range relative to now.
//
// Unknown identifiers resolve to the zero-width range [now, now]. Callers that
// need to reject them should check Known first.
func Resolve(id ID, now time.Time) Range {
	switch id {
	case Today:
		return Range{Start: startOfDay(now), End: now}
	case Yesterday:
		start := startOfDay(now.AddDate(0, 0, -1))
		end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
		return Range{Start: start, End: end}
	}
	if days, ok := trailingDays[id]; ok {
		return Range{Start: now.AddDate(0, 0, -days), End: now}
	}
	return Range{Start: now, End: now}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
