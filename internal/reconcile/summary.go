package reconcile

import (
	"sort"
	"strconv"
	"time"
)

// Summary is the set of derived figures every report shows
type Summary struct {
	TotalHours         float64            `json:"totalHours"`
	TotalFormatted     Duration           `json:"totalFormatted"`
	DaysWorked         int                `json:"daysWorked"`
	AverageHoursPerDay float64            `json:"averageHoursPerDay"`
	AverageFormatted   Duration           `json:"averageFormatted"`
	HoursByKey         map[string]float64 `json:"hoursByKey"`
	ValidSessions      int                `json:"validSessions"`
	InvalidSessions    int                `json:"invalidSessions"`
	Days               []DaySummary       `json:"days"`
}

// DaySummary is one line of the daily breakdown
type DaySummary struct {
	Date      string    `json:"date"`
	Hours     float64   `json:"hours"`
	Formatted Duration  `json:"formatted"`
	HasValid  bool      `json:"hasValid"`
	Sessions  []Session `json:"sessions"`
}

// Summarize derives the report figures from r
func Summarize(r Result) Summary {
	total := TotalHours(r.HoursByKey)
	days := DaysWorked(r.SessionsByDay)
	avg := AverageHoursPerDay(total, days)
	byDay := HoursByDay(r.SessionsByDay)

	s := Summary{
		TotalHours:         total,
		TotalFormatted:     FormatDuration(total),
		DaysWorked:         days,
		AverageHoursPerDay: avg,
		AverageFormatted:   FormatDuration(avg),
		HoursByKey:         r.HoursByKey,
		Days:               make([]DaySummary, 0, len(r.SessionsByDay)),
	}

	for _, d := range r.Days() {
		sessions := append([]Session(nil), r.SessionsByDay[d]...)
		sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].TimeIn.Before(sessions[j].TimeIn) })

		ds := DaySummary{Date: d, Hours: byDay[d], Formatted: FormatDuration(byDay[d]), Sessions: sessions}
		for _, sess := range sessions {
			if sess.IsValid {
				ds.HasValid = true
				s.ValidSessions++
			} else {
				s.InvalidSessions++
			}
		}
		s.Days = append(s.Days, ds)
	}
	return s
}

// SortedKeys returns the keys of HoursByKey, plain sites first, mixed last
func SortedKeys(hoursByKey map[string]float64) []string {
	keys := make([]string, 0, len(hoursByKey))
	for k := range hoursByKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		mi, mj := isMixedKey(keys[i]), isMixedKey(keys[j])
		if mi != mj {
			return !mi
		}
		return keys[i] < keys[j]
	})
	return keys
}

func isMixedKey(k string) bool {
	return len(k) >= len(MixedPrefix) && k[:len(MixedPrefix)] == MixedPrefix
}

func formatText(h, m int) string {
	return strconv.Itoa(h) + "h " + strconv.Itoa(m) + "m"
}

// EmployeeSummary is the Summary of a single employee
type EmployeeSummary struct {
	EmployeeID   int64  `json:"employeeId"`
	EmployeeName string `json:"employeeName"`
	Summary
}

// SummarizeByEmployee reconciles each employee's events separately and
// returns the summaries ordered by name, then id.
func SummarizeByEmployee(events []Event) []EmployeeSummary {
	return summarizeEach(events, func(r Result) Result { return r })
}

// SummarizeByEmployeeUntil is SummarizeByEmployee keeping only sessions
// started by end (see Result.Until).
func SummarizeByEmployeeUntil(events []Event, end time.Time) []EmployeeSummary {
	return summarizeEach(events, func(r Result) Result { return r.Until(end) })
}

func summarizeEach(events []Event, shape func(Result) Result) []EmployeeSummary {
	out := make([]EmployeeSummary, 0)
	for _, id := range EmployeeIDs(events) {
		own := FilterByEmployee(events, id)
		name := ""
		for _, e := range own {
			if e.EmployeeName != "" {
				name = e.EmployeeName
				break
			}
		}
		out = append(out, EmployeeSummary{
			EmployeeID:   id,
			EmployeeName: name,
			Summary:      Summarize(shape(Reconcile(own))),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EmployeeName != out[j].EmployeeName {
			return out[i].EmployeeName < out[j].EmployeeName
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}
