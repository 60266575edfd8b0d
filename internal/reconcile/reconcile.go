package reconcile

import (
	"math"
	"sort"
	"time"
)

// Result is the output of Reconcile.
// HoursByKey only ever holds valid hours; SessionsByDay holds every paired
// session, valid or not, keyed by the DateKey of its IN.
type Result struct {
	HoursByKey    map[string]float64   `json:"hoursByKey"`
	SessionsByDay map[string][]Session `json:"sessionsByDay"`
}

// Reconcile pairs events into sessions.
//
// Events are ordered by day then row id (see sortEvents) and scanned once. Each employee has at most one pending IN: a new IN replaces
// it, an OUT closes it, an OUT without one is dropped, and a pending IN left
// at the end is an open shift and produces nothing.
func Reconcile(events []Event) Result {
	res := Result{
		HoursByKey:    make(map[string]float64),
		SessionsByDay: make(map[string][]Session),
	}

	pending := make(map[int64]Event)
	for _, ev := range sortEvents(events) {
		switch ev.Type {
		case In:
			pending[ev.EmployeeID] = ev
		case Out:
			in, ok := pending[ev.EmployeeID]
			if !ok {
				continue
			}
			delete(pending, ev.EmployeeID)
			res.add(pair(in, ev))
		}
	}

	return res
}

func pair(in, out Event) Session {
	s := newSession(in, out)

	if !out.Timestamp.After(in.Timestamp) {
		s.InvalidReason = ReasonTemporal
		return s
	}

	s.Hours = out.Timestamp.Sub(in.Timestamp).Hours()
	if s.Hours > MaxSessionHours {
		s.InvalidReason = ReasonExcessive
		return s
	}

	s.IsValid = true
	return s
}

func (r *Result) add(s Session) {
	if s.IsValid {
		r.HoursByKey[s.SiteKey()] += s.Hours
	}
	r.SessionsByDay[s.DateKey] = append(r.SessionsByDay[s.DateKey], s)
}

// sortEvents orders events for pairing.
//
// When every event carries a row id, events are grouped by the wall-clock day
// of their timestamp and ordered by id inside the day: an OUT written after
// its IN pairs with it even when its time is earlier, and comes out temporal.
// Without ids the order is timestamp, then input order.
func sortEvents(events []Event) []Event {
	sorted := make([]Event, len(events))
	copy(sorted, events)

	byID := hasIDs(sorted)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if byID {
			da, db := dayOf(a.Timestamp), dayOf(b.Timestamp)
			if da != db {
				return da < db
			}
			return a.ID < b.ID
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})
	return sorted
}

func hasIDs(events []Event) bool {
	for _, e := range events {
		if e.ID == 0 {
			return false
		}
	}
	return true
}

func dayOf(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// Until keeps the sessions whose IN is not after end and rebuilds HoursByKey
// from them. Used when events were fetched past end so that sessions started
// inside a window can still find their OUT.
func (r Result) Until(end time.Time) Result {
	out := Result{
		HoursByKey:    make(map[string]float64),
		SessionsByDay: make(map[string][]Session),
	}
	for _, s := range r.Sessions() {
		if s.TimeIn.After(end) {
			continue
		}
		out.add(s)
	}
	return out
}

// Days returns the day keys of SessionsByDay in ascending order
func (r Result) Days() []string {
	days := make([]string, 0, len(r.SessionsByDay))
	for d := range r.SessionsByDay {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

// Sessions returns every session ordered by day, then by TimeIn
func (r Result) Sessions() []Session {
	var out []Session
	for _, d := range r.Days() {
		day := append([]Session(nil), r.SessionsByDay[d]...)
		sort.SliceStable(day, func(i, j int) bool { return day[i].TimeIn.Before(day[j].TimeIn) })
		out = append(out, day...)
	}
	return out
}

// Anomalies returns the invalid sessions in Sessions order
func (r Result) Anomalies() []Session {
	var out []Session
	for _, s := range r.Sessions() {
		if !s.IsValid {
			out = append(out, s)
		}
	}
	return out
}

// TotalHours sums hoursByKey (in key order, so the float result is stable)
func TotalHours(hoursByKey map[string]float64) float64 {
	keys := make([]string, 0, len(hoursByKey))
	for k := range hoursByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var total float64
	for _, k := range keys {
		total += hoursByKey[k]
	}
	return total
}

// DaysWorked counts the days holding at least one valid session
func DaysWorked(sessionsByDay map[string][]Session) int {
	n := 0
	for _, sessions := range sessionsByDay {
		for _, s := range sessions {
			if s.IsValid {
				n++
				break
			}
		}
	}
	return n
}

// AverageHoursPerDay is total/days, or 0 without worked days
func AverageHoursPerDay(totalHours float64, daysWorked int) float64 {
	if daysWorked <= 0 {
		return 0
	}
	return totalHours / float64(daysWorked)
}

// HoursByDay sums the valid hours of each day
func HoursByDay(sessionsByDay map[string][]Session) map[string]float64 {
	out := make(map[string]float64, len(sessionsByDay))
	for day, sessions := range sessionsByDay {
		var sum float64
		for _, s := range sessions {
			if s.IsValid {
				sum += s.Hours
			}
		}
		out[day] = sum
	}
	return out
}

// Duration is an hour value split for display
type Duration struct {
	WholeHours int    `json:"hours"`
	Minutes    int    `json:"minutes"`
	Text       string `json:"text"`
}

// FormatDuration renders hours as "{h}h {m}m". Minutes are rounded to the
// nearest integer; a rounding that reaches 60 is carried into the hours, so
// 1.999 renders as "2h 0m".
func FormatDuration(hours float64) Duration {
	whole := math.Floor(hours)
	minutes := int(math.Round((hours - whole) * 60))
	h := int(whole)
	if minutes == 60 {
		h++
		minutes = 0
	}
	return Duration{
		WholeHours: h,
		Minutes:    minutes,
		Text:       formatText(h, minutes),
	}
}
