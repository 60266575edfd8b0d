// Package reconcile pairs clock-in/clock-out events into work sessions and
// aggregates the valid ones into hour totals.
//
// Everything here is pure: no I/O, no shared state, safe to call concurrently
// on independent inputs.
package reconcile

import "time"

// EventType is the direction of a clock action
type EventType string

const (
	In  EventType = "in"
	Out EventType = "out"
)

// Valid reports whether t is one of In, Out
func (t EventType) Valid() bool {
	return t == In || t == Out
}

// UnspecifiedSite replaces an empty work-site name everywhere a site label is needed
const UnspecifiedSite = "Non specificato"

// DateKeyLayout is the layout of Session.DateKey
const DateKeyLayout = "2006-01-02"

// Event is one clock action as read from storage.
// Timestamp is a zone-naive local wall clock; every event of one call must be
// anchored to the same location.
type Event struct {
	ID         int64
	EmployeeID int64
	WorkSiteID *int64
	Timestamp  time.Time
	Type       EventType

	EmployeeName string
	WorkSiteName string
	DeviceInfo   string
	IsForced     bool
	Notes        string
}

// SiteLabel returns the work-site name, or UnspecifiedSite
func (e Event) SiteLabel() string {
	if e.WorkSiteName == "" {
		return UnspecifiedSite
	}
	return e.WorkSiteName
}

// FilterByEmployee keeps the events of one employee
func FilterByEmployee(events []Event, employeeID int64) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out
}

// FilterByWorkSite keeps the events recorded at one site
func FilterByWorkSite(events []Event, workSiteID int64) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.WorkSiteID != nil && *e.WorkSiteID == workSiteID {
			out = append(out, e)
		}
	}
	return out
}

// FilterByRange keeps events with from <= Timestamp <= to. A zero bound is open.
func FilterByRange(events []Event, from, to time.Time) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && e.Timestamp.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// EmployeeIDs lists the distinct employees in events, in first-seen order
func EmployeeIDs(events []Event) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, e := range events {
		if _, ok := seen[e.EmployeeID]; ok {
			continue
		}
		seen[e.EmployeeID] = struct{}{}
		ids = append(ids, e.EmployeeID)
	}
	return ids
}
