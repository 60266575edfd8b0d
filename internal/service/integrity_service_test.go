package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"siteclock/internal/domain"
	"siteclock/internal/reconcile"
)

func TestFindOrphans(t *testing.T) {
	recs := []domain.AttendanceRecord{
		{ID: 1, EmployeeID: 1, Type: reconcile.Out, Timestamp: at("2025-03-10T07:00")},
		{ID: 2, EmployeeID: 1, Type: reconcile.In, Timestamp: at("2025-03-10T08:00")},
		{ID: 3, EmployeeID: 1, Type: reconcile.In, Timestamp: at("2025-03-10T09:00")},
		{ID: 4, EmployeeID: 1, Type: reconcile.Out, Timestamp: at("2025-03-10T17:00")},
		{ID: 5, EmployeeID: 1, Type: reconcile.Out, Timestamp: at("2025-03-10T18:00")},
		{ID: 6, EmployeeID: 2, Type: reconcile.In, Timestamp: at("2025-03-10T06:00")},
		{ID: 7, EmployeeID: 2, Type: reconcile.Out, Timestamp: at("2025-03-10T14:00")},
	}

	got := FindOrphans(recs)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].RecordID)
	assert.Equal(t, ProblemOutWithoutIn, got[0].Problem)
	assert.Equal(t, int64(3), got[1].RecordID)
	assert.Equal(t, ProblemDuplicateIn, got[1].Problem)
	assert.Equal(t, int64(5), got[2].RecordID)
	assert.Equal(t, ProblemDuplicateOut, got[2].Problem)
}

func TestProposeFixes_PairsByInsertionOrder(t *testing.T) {
	recs := []domain.AttendanceRecord{
		{ID: 1, EmployeeID: 1, Type: reconcile.In, Timestamp: at("2025-03-10T22:00")},
		// forced OUT entered with the IN's date
		{ID: 2, EmployeeID: 1, Type: reconcile.Out, Timestamp: at("2025-03-10T06:00")},
		{ID: 3, EmployeeID: 1, Type: reconcile.In, Timestamp: at("2025-03-11T08:00")},
		{ID: 4, EmployeeID: 1, Type: reconcile.Out, Timestamp: at("2025-03-11T16:00")},
		// more than the window apart: left alone
		{ID: 5, EmployeeID: 2, Type: reconcile.In, Timestamp: at("2025-03-11T23:00")},
		{ID: 6, EmployeeID: 2, Type: reconcile.Out, Timestamp: at("2025-03-11T04:00")},
	}

	fixes := ProposeFixes(recs)
	require.Len(t, fixes, 1)
	f := fixes[0]
	assert.Equal(t, int64(1), f.InID)
	assert.Equal(t, int64(2), f.OutID)
	assert.Equal(t, "2025-03-11T06:00:00.000", domain.FormatLocal(f.FixedOut))
	assert.InDelta(t, -16.0, f.OldHours, 1e-9)
	assert.InDelta(t, 8.0, f.NewHours, 1e-9)
}

func TestIntegrityService_CheckAndRepair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mario := env.addEmployee(t, "mario", domain.RoleEmployee)
	anna := env.addEmployee(t, "anna", domain.RoleEmployee)
	luca := env.addEmployee(t, "luca", domain.RoleEmployee)

	env.addRecord(t, mario, nil, reconcile.In, "2025-03-10T22:00")
	env.addRecord(t, mario, nil, reconcile.Out, "2025-03-10T06:00")
	env.addRecord(t, anna, nil, reconcile.In, "2025-03-10T08:00")
	env.addRecord(t, luca, nil, reconcile.In, "2025-03-10T07:00")
	env.addRecord(t, luca, nil, reconcile.In, "2025-03-10T08:00")
	env.addRecord(t, luca, nil, reconcile.In, "2025-03-10T09:00")

	svc := NewIntegrityService(env.attendance, env.reports, zap.NewNop())
	report, err := svc.Check(ctx)
	require.NoError(t, err)
	assert.False(t, report.Healthy)

	status := map[string]string{}
	for _, b := range report.Employees {
		status[b.EmployeeName] = b.Status
	}
	assert.Equal(t, StatusOK, status["mario"])
	assert.Equal(t, StatusClockedIn, status["anna"])
	assert.Equal(t, StatusError, status["luca"])
	require.Len(t, report.Fixes, 1)

	fixes, applied, err := svc.FixTimestamps(ctx, true)
	require.NoError(t, err)
	assert.Len(t, fixes, 1)
	assert.Zero(t, applied)

	_, applied, err = svc.FixTimestamps(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	summary, err := env.reports.Summary(ctx, ReportFilter{EmployeeID: mario.ID})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, summary.TotalHours, 1e-9)

	deleted, err := svc.DeleteOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	after, err := svc.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, after.Orphans)
	assert.Empty(t, after.Fixes)
}

func TestIntegrityService_HealthyDatabase(t *testing.T) {
	env := newTestEnv(t)
	mario := env.addEmployee(t, "mario", domain.RoleEmployee)
	env.addRecord(t, mario, nil, reconcile.In, "2025-03-10T08:00")
	env.addRecord(t, mario, nil, reconcile.Out, "2025-03-10T16:00")

	report, err := NewIntegrityService(env.attendance, nil, zap.NewNop()).Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Healthy)
	assert.Empty(t, report.Orphans)
	assert.Empty(t, report.Fixes)
}
