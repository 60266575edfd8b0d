package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteclock/internal/domain"
	"siteclock/internal/reconcile"
)

func TestRollOver(t *testing.T) {
	in := at("2025-03-10T22:00")

	out, ok := RollOver(in, at("2025-03-10T06:00"))
	assert.True(t, ok)
	assert.Equal(t, "2025-03-11T06:00:00.000", domain.FormatLocal(out))

	_, ok = RollOver(in, at("2025-03-10T23:00"))
	assert.False(t, ok, "out after in")

	_, ok = RollOver(in, in)
	assert.False(t, ok, "equal timestamps")

	_, ok = RollOver(in, in.Add(-RolloverWindow))
	assert.False(t, ok, "window boundary is excluded")
}

func TestAttendanceService_Record(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	emp := env.addEmployee(t, "mario", domain.RoleEmployee)
	site := env.addSite(t, "Cantiere Nord", 45.4642, 9.19)
	svc := env.attendanceService(true)

	// warm the cache so invalidation is observable
	_, err := env.reports.Summary(ctx, ReportFilter{})
	require.NoError(t, err)

	siteID := site.ID
	rec, err := svc.Record(ctx, RecordRequest{
		EmployeeID: emp.ID,
		WorkSiteID: &siteID,
		Type:       reconcile.In,
		Timestamp:  "2025-03-10T08:00:00.000",
		DeviceInfo: " Android ",
		Latitude:   45.4643,
		Longitude:  9.1901,
	})
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, "Cantiere Nord", rec.WorkSiteName)
	assert.Equal(t, "Android", rec.DeviceInfo)
	assert.False(t, rec.IsForced)

	require.Len(t, env.publisher.events, 1)
	assert.Equal(t, ActionRecorded, env.publisher.events[0].Action)

	keys, err := env.kv.ScanKeys(ctx, "report:*")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestAttendanceService_RecordValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	emp := env.addEmployee(t, "mario", domain.RoleEmployee)
	site := env.addSite(t, "Cantiere Nord", 45.4642, 9.19)
	siteID := site.ID

	strict := env.attendanceService(true)
	_, err := strict.Record(ctx, RecordRequest{EmployeeID: emp.ID, Type: "lunch"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = strict.Record(ctx, RecordRequest{EmployeeID: 999, Type: reconcile.In})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = strict.Record(ctx, RecordRequest{EmployeeID: emp.ID, WorkSiteID: &siteID, Type: reconcile.In, Latitude: 41.9, Longitude: 12.5})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = strict.Record(ctx, RecordRequest{EmployeeID: emp.ID, Type: reconcile.In, Timestamp: "yesterday"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	lenient := env.attendanceService(false)
	_, err = lenient.Record(ctx, RecordRequest{EmployeeID: emp.ID, WorkSiteID: &siteID, Type: reconcile.In, Latitude: 41.9, Longitude: 12.5})
	assert.NoError(t, err)
	assert.Len(t, env.publisher.events, 1)
}

func TestAttendanceService_RecordDefaultsToNow(t *testing.T) {
	env := newTestEnv(t)
	emp := env.addEmployee(t, "mario", domain.RoleEmployee)
	svc := env.attendanceService(false)
	fixed := time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	rec, err := svc.Record(context.Background(), RecordRequest{EmployeeID: emp.ID, Type: reconcile.In})
	require.NoError(t, err)
	assert.True(t, rec.Timestamp.Equal(fixed))
	assert.Equal(t, rome, rec.Timestamp.Location())
}

func TestAttendanceService_ForceRollsOverMidnight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addEmployee(t, "boss", domain.RoleAdmin)
	emp := env.addEmployee(t, "mario", domain.RoleEmployee)
	site := env.addSite(t, "Cantiere Nord", 45.4642, 9.19)
	env.addRecord(t, emp, site, reconcile.In, "2025-03-10T22:00")
	svc := env.attendanceService(true)

	rec, err := svc.Force(ctx, admin, ForceRequest{
		EmployeeID: emp.ID,
		WorkSiteID: site.ID,
		Type:       reconcile.Out,
		Timestamp:  "2025-03-10T06:00",
		Notes:      "forgot to clock out",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11T06:00:00.000", domain.FormatLocal(rec.Timestamp))
	assert.True(t, rec.IsForced)
	require.NotNil(t, rec.ForcedByAdminID)
	assert.Equal(t, admin.ID, *rec.ForcedByAdminID)
	assert.Equal(t, "Forced by admin: boss | Note: forgot to clock out", rec.DeviceInfo)
	assert.Zero(t, rec.Latitude)

	require.Len(t, env.publisher.events, 1)
	assert.Equal(t, ActionForced, env.publisher.events[0].Action)

	report, err := env.reports.Summary(ctx, ReportFilter{EmployeeID: emp.ID})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, report.TotalHours, 1e-9)
}

func TestAttendanceService_ForceRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	foreman := env.addEmployee(t, "capo", domain.RoleForeman)
	emp := env.addEmployee(t, "mario", domain.RoleEmployee)
	site := env.addSite(t, "Cantiere Nord", 45.4642, 9.19)
	svc := env.attendanceService(false)

	req := ForceRequest{EmployeeID: emp.ID, WorkSiteID: site.ID, Type: reconcile.In}
	_, err := svc.Force(ctx, foreman, req)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.Force(ctx, nil, req)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	req.WorkSiteID = 0
	admin := env.addEmployee(t, "boss", domain.RoleAdmin)
	_, err = svc.Force(ctx, admin, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAttendanceService_ListNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	emp := env.addEmployee(t, "mario", domain.RoleEmployee)
	other := env.addEmployee(t, "luigi", domain.RoleEmployee)
	env.addRecord(t, emp, nil, reconcile.In, "2025-03-10T08:00")
	env.addRecord(t, emp, nil, reconcile.Out, "2025-03-10T17:00")
	env.addRecord(t, other, nil, reconcile.In, "2025-03-10T09:00")
	svc := env.attendanceService(false)

	recs, err := svc.List(context.Background(), emp.ID, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, reconcile.Out, recs[0].Type)

	all, err := svc.List(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
