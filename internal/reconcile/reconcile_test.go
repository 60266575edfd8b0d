package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation("2006-01-02T15:04", s, time.Local)
	require.NoError(t, err)
	return v
}

func siteID(id int64) *int64 { return &id }

type eventBuilder struct {
	t      *testing.T
	nextID int64
	events []Event
}

func newEvents(t *testing.T) *eventBuilder { return &eventBuilder{t: t} }

func (b *eventBuilder) add(emp int64, typ EventType, at, site string) *eventBuilder {
	b.nextID++
	ev := Event{ID: b.nextID, EmployeeID: emp, Type: typ, Timestamp: ts(b.t, at), WorkSiteName: site}
	if site != "" {
		ev.WorkSiteID = siteID(int64(len(site)))
	}
	b.events = append(b.events, ev)
	return b
}

func (b *eventBuilder) in(at, site string) *eventBuilder  { return b.add(1, In, at, site) }
func (b *eventBuilder) out(at, site string) *eventBuilder { return b.add(1, Out, at, site) }

func allSessions(r Result) []Session { return r.Sessions() }

func TestReconcile_SimpleValidDay(t *testing.T) {
	events := newEvents(t).in("2024-01-01T08:00", "Alpha").out("2024-01-01T12:00", "Alpha").events

	res := Reconcile(events)

	assert.Equal(t, map[string]float64{"Alpha": 4.0}, res.HoursByKey)
	sessions := allSessions(res)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].IsValid)
	assert.Equal(t, ReasonNone, sessions[0].InvalidReason)
	assert.Equal(t, "2024-01-01", sessions[0].DateKey)
	assert.Equal(t, 1, DaysWorked(res.SessionsByDay))
}

func TestReconcile_TemporalInversion(t *testing.T) {
	events := newEvents(t).in("2024-01-02T09:00", "Alpha").out("2024-01-02T08:00", "Alpha").events

	res := Reconcile(events)

	assert.Empty(t, res.HoursByKey)
	require.Len(t, res.SessionsByDay["2024-01-02"], 1)
	s := res.SessionsByDay["2024-01-02"][0]
	assert.False(t, s.IsValid)
	assert.Equal(t, ReasonTemporal, s.InvalidReason)
	assert.Equal(t, 0.0, s.Hours)
	assert.Equal(t, 0, DaysWorked(res.SessionsByDay))
}

func TestReconcile_EqualTimestampsAreTemporal(t *testing.T) {
	events := newEvents(t).in("2024-01-02T09:00", "Alpha").out("2024-01-02T09:00", "Alpha").events

	res := Reconcile(events)

	require.Len(t, res.SessionsByDay["2024-01-02"], 1)
	assert.Equal(t, ReasonTemporal, res.SessionsByDay["2024-01-02"][0].InvalidReason)
	assert.Empty(t, res.HoursByKey)
}

func TestReconcile_ExcessiveDuration(t *testing.T) {
	events := newEvents(t).in("2024-01-01T08:00", "Alpha").out("2024-01-03T08:00", "Alpha").events

	res := Reconcile(events)

	assert.Empty(t, res.HoursByKey)
	require.Len(t, res.SessionsByDay["2024-01-01"], 1)
	s := res.SessionsByDay["2024-01-01"][0]
	assert.False(t, s.IsValid)
	assert.Equal(t, ReasonExcessive, s.InvalidReason)
	assert.InDelta(t, 48.0, s.Hours, 1e-9)
	assert.Equal(t, 0, DaysWorked(res.SessionsByDay))
}

func TestReconcile_ExactlyTwentyFourHoursIsValid(t *testing.T) {
	events := newEvents(t).in("2024-03-01T06:00", "Alpha").out("2024-03-02T06:00", "Alpha").events

	res := Reconcile(events)

	require.Len(t, res.SessionsByDay["2024-03-01"], 1)
	assert.True(t, res.SessionsByDay["2024-03-01"][0].IsValid)
	assert.InDelta(t, 24.0, res.HoursByKey["Alpha"], 1e-9)
}

func TestReconcile_MixedWorkSite(t *testing.T) {
	events := newEvents(t).in("2024-01-01T08:00", "SiteA").out("2024-01-01T16:00", "SiteB").events

	res := Reconcile(events)

	assert.Equal(t, map[string]float64{"[MIXED] SiteA → SiteB": 8.0}, res.HoursByKey)
	s := allSessions(res)[0]
	assert.True(t, s.IsValid)
	assert.True(t, s.IsMixed())
	assert.Equal(t, "SiteA", s.WorkSiteIn)
	assert.Equal(t, "SiteB", s.WorkSiteOut)
}

func TestReconcile_MissingSiteUsesPlaceholder(t *testing.T) {
	events := newEvents(t).in("2024-01-01T08:00", "").out("2024-01-01T10:00", "").events

	res := Reconcile(events)

	assert.Equal(t, map[string]float64{UnspecifiedSite: 2.0}, res.HoursByKey)

	mixed := Reconcile(newEvents(t).in("2024-01-01T08:00", "").out("2024-01-01T10:00", "Alpha").events)
	assert.Equal(t, map[string]float64{"[MIXED] Non specificato → Alpha": 2.0}, mixed.HoursByKey)
}

func TestReconcile_OrphanAndConsecutiveEvents(t *testing.T) {
	events := newEvents(t).
		out("2024-01-01T08:00", "Alpha").
		in("2024-01-01T09:00", "Alpha").
		in("2024-01-01T10:00", "Alpha").
		out("2024-01-01T14:00", "Alpha").events

	res := Reconcile(events)

	sessions := allSessions(res)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].IsValid)
	assert.Equal(t, ts(t, "2024-01-01T10:00"), sessions[0].TimeIn)
	assert.Equal(t, int64(3), sessions[0].InEventID)
	assert.Equal(t, map[string]float64{"Alpha": 4.0}, res.HoursByKey)
}

func TestReconcile_OpenShift(t *testing.T) {
	res := Reconcile(newEvents(t).in("2024-01-01T08:00", "Alpha").events)

	assert.Empty(t, res.HoursByKey)
	assert.Empty(t, res.SessionsByDay)
}

func TestReconcile_EmptyInput(t *testing.T) {
	res := Reconcile(nil)
	assert.NotNil(t, res.HoursByKey)
	assert.NotNil(t, res.SessionsByDay)
	assert.Equal(t, 0.0, TotalHours(res.HoursByKey))
	assert.Equal(t, 0, DaysWorked(res.SessionsByDay))
}

func TestReconcile_WithoutIDsSortsByTimestamp(t *testing.T) {
	b := newEvents(t).
		out("2024-01-01T17:00", "Alpha").
		in("2024-01-01T13:00", "Alpha").
		out("2024-01-01T12:00", "Alpha").
		in("2024-01-01T08:00", "Alpha")
	for i := range b.events {
		b.events[i].ID = 0
	}

	res := Reconcile(b.events)

	assert.InDelta(t, 8.0, res.HoursByKey["Alpha"], 1e-9)
	assert.Len(t, res.SessionsByDay["2024-01-01"], 2)
	assert.Empty(t, res.Anomalies())
}

func TestReconcile_OutWrittenBeforeInTimeIsTemporal(t *testing.T) {
	// ids follow the writes, whatever the input order
	b := newEvents(t).
		in("2024-01-02T09:00", "Alpha").
		out("2024-01-02T08:00", "Alpha")
	reversed := []Event{b.events[1], b.events[0]}

	res := Reconcile(reversed)

	require.Len(t, res.SessionsByDay["2024-01-02"], 1)
	s := res.SessionsByDay["2024-01-02"][0]
	assert.Equal(t, ReasonTemporal, s.InvalidReason)
	assert.Equal(t, int64(1), s.InEventID)
	assert.Equal(t, int64(2), s.OutEventID)
	assert.Empty(t, res.HoursByKey)
}

func TestReconcile_BackfilledOutOfEarlierDayPairsWithThatDay(t *testing.T) {
	// forgotten OUT of Monday forced after Tuesday's IN
	events := newEvents(t).
		in("2024-01-01T08:00", "Alpha").
		in("2024-01-02T08:00", "Alpha").
		out("2024-01-01T17:00", "Alpha").events

	res := Reconcile(events)

	require.Len(t, res.SessionsByDay["2024-01-01"], 1)
	assert.True(t, res.SessionsByDay["2024-01-01"][0].IsValid)
	assert.InDelta(t, 9.0, res.HoursByKey["Alpha"], 1e-9)
	assert.NotContains(t, res.SessionsByDay, "2024-01-02")
}

func TestReconcile_SameTimestampTieBrokenByID(t *testing.T) {
	at := ts(t, "2024-01-01T08:00")
	later := ts(t, "2024-01-01T12:00")
	// an OUT and an IN on the same instant: the lower id is processed first
	events := []Event{
		{ID: 11, EmployeeID: 1, Type: In, Timestamp: at, WorkSiteName: "Alpha"},
		{ID: 10, EmployeeID: 1, Type: Out, Timestamp: at, WorkSiteName: "Alpha"},
		{ID: 12, EmployeeID: 1, Type: Out, Timestamp: later, WorkSiteName: "Alpha"},
	}

	res := Reconcile(events)

	sessions := allSessions(res)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(11), sessions[0].InEventID)
	assert.Equal(t, int64(12), sessions[0].OutEventID)
	assert.InDelta(t, 4.0, res.HoursByKey["Alpha"], 1e-9)
}

func TestReconcile_PairsPerEmployee(t *testing.T) {
	events := []Event{
		{ID: 1, EmployeeID: 1, Type: In, Timestamp: ts(t, "2024-01-01T08:00"), WorkSiteName: "Alpha"},
		{ID: 2, EmployeeID: 2, Type: In, Timestamp: ts(t, "2024-01-01T09:00"), WorkSiteName: "Alpha"},
		{ID: 3, EmployeeID: 1, Type: Out, Timestamp: ts(t, "2024-01-01T12:00"), WorkSiteName: "Alpha"},
		{ID: 4, EmployeeID: 2, Type: Out, Timestamp: ts(t, "2024-01-01T17:00"), WorkSiteName: "Alpha"},
	}

	res := Reconcile(events)

	assert.InDelta(t, 12.0, res.HoursByKey["Alpha"], 1e-9)
	sessions := allSessions(res)
	require.Len(t, sessions, 2)
	assert.Equal(t, int64(1), sessions[0].EmployeeID)
	assert.InDelta(t, 4.0, sessions[0].Hours, 1e-9)
	assert.Equal(t, int64(2), sessions[1].EmployeeID)
	assert.InDelta(t, 8.0, sessions[1].Hours, 1e-9)
}

func TestReconcile_DayKeyFromTimeIn(t *testing.T) {
	events := newEvents(t).in("2024-01-01T22:00", "Alpha").out("2024-01-02T06:00", "Alpha").events

	res := Reconcile(events)

	require.Contains(t, res.SessionsByDay, "2024-01-01")
	assert.NotContains(t, res.SessionsByDay, "2024-01-02")
	assert.InDelta(t, 8.0, res.HoursByKey["Alpha"], 1e-9)
}

func TestReconcile_ThreadsContextFields(t *testing.T) {
	events := []Event{
		{ID: 1, EmployeeID: 9, EmployeeName: "Mario", Type: In, Timestamp: ts(t, "2024-01-01T08:00"),
			WorkSiteID: siteID(3), WorkSiteName: "Alpha", DeviceInfo: "Pixel 7"},
		{ID: 2, EmployeeID: 9, EmployeeName: "Mario", Type: Out, Timestamp: ts(t, "2024-01-01T12:00"),
			WorkSiteID: siteID(3), WorkSiteName: "Alpha", DeviceInfo: "Forced by admin: Admin", IsForced: true, Notes: "forgot"},
	}

	s := allSessions(Reconcile(events))[0]

	assert.Equal(t, "Mario", s.EmployeeName)
	assert.Equal(t, "Pixel 7", s.DeviceInfoIn)
	assert.Equal(t, "Forced by admin: Admin", s.DeviceInfoOut)
	assert.False(t, s.ForcedIn)
	assert.True(t, s.ForcedOut)
	assert.Equal(t, "forgot", s.NotesOut)
	require.NotNil(t, s.WorkSiteInID)
	assert.Equal(t, int64(3), *s.WorkSiteInID)
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	b := newEvents(t).out("2024-01-01T12:00", "Alpha").in("2024-01-01T08:00", "Alpha")
	before := append([]Event(nil), b.events...)

	Reconcile(b.events)

	assert.Equal(t, before, b.events)
}

func mixedWorkload(t *testing.T) []Event {
	return newEvents(t).
		out("2024-01-01T07:00", "Alpha").
		in("2024-01-01T08:00", "Alpha").
		out("2024-01-01T12:00", "Alpha").
		in("2024-01-01T13:00", "Alpha").
		out("2024-01-01T17:30", "Beta").
		in("2024-01-02T09:00", "Beta").
		out("2024-01-02T08:00", "Beta").
		in("2024-01-03T08:00", "Beta").
		out("2024-01-05T08:00", "Beta").
		in("2024-01-06T08:00", "Gamma").
		in("2024-01-06T08:15", "Gamma").
		out("2024-01-06T16:45", "Gamma").
		in("2024-01-07T08:00", "Gamma").events
}

func TestReconcile_Idempotent(t *testing.T) {
	events := mixedWorkload(t)
	assert.Equal(t, Reconcile(events), Reconcile(events))
}

func TestReconcile_InvalidSessionsContributeNothing(t *testing.T) {
	res := Reconcile(mixedWorkload(t))

	var validSum float64
	for _, s := range res.Sessions() {
		if s.IsValid {
			validSum += s.Hours
		}
	}
	assert.InDelta(t, validSum, TotalHours(res.HoursByKey), 1e-9)
	assert.InDelta(t, 4.0+4.5+8.5, TotalHours(res.HoursByKey), 1e-9)

	anomalies := res.Anomalies()
	require.Len(t, anomalies, 2)
	assert.Equal(t, ReasonTemporal, anomalies[0].InvalidReason)
	assert.Equal(t, ReasonExcessive, anomalies[1].InvalidReason)
	assert.InDelta(t, 48.0, anomalies[1].Hours, 1e-9)

	assert.Equal(t, 2, DaysWorked(res.SessionsByDay))
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-06"}, res.Days())
}

func TestReconcile_PairingIndependentOfInputPermutation(t *testing.T) {
	events := mixedWorkload(t)
	reversed := make([]Event, len(events))
	for i, e := range events {
		reversed[len(events)-1-i] = e
	}
	assert.Equal(t, Reconcile(events), Reconcile(reversed))
}

func TestFilters(t *testing.T) {
	events := []Event{
		{ID: 1, EmployeeID: 1, WorkSiteID: siteID(10), Timestamp: ts(t, "2024-01-01T08:00")},
		{ID: 2, EmployeeID: 2, WorkSiteID: siteID(20), Timestamp: ts(t, "2024-01-02T08:00")},
		{ID: 3, EmployeeID: 1, Timestamp: ts(t, "2024-01-03T08:00")},
	}

	assert.Len(t, FilterByEmployee(events, 1), 2)
	assert.Len(t, FilterByWorkSite(events, 20), 1)
	assert.Len(t, FilterByRange(events, ts(t, "2024-01-02T00:00"), time.Time{}), 2)
	assert.Len(t, FilterByRange(events, time.Time{}, ts(t, "2024-01-02T08:00")), 2)
	assert.Equal(t, []int64{1, 2}, EmployeeIDs(events))
}

func TestAverageHoursPerDay(t *testing.T) {
	assert.Equal(t, 0.0, AverageHoursPerDay(10, 0))
	assert.InDelta(t, 2.5, AverageHoursPerDay(10, 4), 1e-9)
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		hours float64
		want  Duration
	}{
		{0, Duration{0, 0, "0h 0m"}},
		{4, Duration{4, 0, "4h 0m"}},
		{8.5, Duration{8, 30, "8h 30m"}},
		{7.75, Duration{7, 45, "7h 45m"}},
		{1.0 / 3.0, Duration{0, 20, "0h 20m"}},
		{1.999, Duration{2, 0, "2h 0m"}},
		{48, Duration{48, 0, "48h 0m"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDuration(tc.hours), "hours=%v", tc.hours)
	}
}

func TestResult_UntilKeepsSessionsStartedInWindow(t *testing.T) {
	events := newEvents(t).
		in("2024-01-01T22:00", "Alpha").
		out("2024-01-02T06:00", "Alpha").
		in("2024-01-02T08:00", "Beta").
		out("2024-01-02T12:00", "Beta").events

	res := Reconcile(events).Until(ts(t, "2024-01-01T23:59"))

	assert.Equal(t, map[string]float64{"Alpha": 8.0}, res.HoursByKey)
	assert.Equal(t, []string{"2024-01-01"}, res.Days())

	byEmployee := SummarizeByEmployeeUntil(events, ts(t, "2024-01-01T23:59"))
	require.Len(t, byEmployee, 1)
	assert.InDelta(t, 8.0, byEmployee[0].TotalHours, 1e-9)
}
