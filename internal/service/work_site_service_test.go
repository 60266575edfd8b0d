package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"siteclock/internal/domain"
	"siteclock/internal/reconcile"
)

func ptr[T any](v T) *T { return &v }

func newWorkSiteService(env *testEnv, dir string) *WorkSiteService {
	svc := NewWorkSiteService(env.sites, env.attendance, env.reports, dir, 0, rome, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 3, 12, 10, 0, 0, 0, rome) }
	return svc
}

func TestWorkSiteService_CreateAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newWorkSiteService(env, t.TempDir())

	_, err := svc.Create(ctx, WorkSiteRequest{Name: "Nord", Latitude: ptr(45.0)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Create(ctx, WorkSiteRequest{Name: "Nord", Latitude: ptr(95.0), Longitude: ptr(9.0), Address: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	w, err := svc.Create(ctx, WorkSiteRequest{Name: " Nord ", Latitude: ptr(45.0), Longitude: ptr(9.0), Address: "Via Po 3"})
	require.NoError(t, err)
	assert.Equal(t, "Nord", w.Name)
	assert.True(t, w.IsActive)
	assert.Equal(t, domain.DefaultRadiusMeters, w.RadiusMeters)

	updated, err := svc.Update(ctx, w.ID, WorkSiteRequest{IsActive: ptr(false), RadiusMeters: 250})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 250.0, updated.RadiusMeters)
	assert.Equal(t, "Via Po 3", updated.Address)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.Update(ctx, 999, WorkSiteRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWorkSiteService_DetailsListsClockedIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newWorkSiteService(env, t.TempDir())
	site := env.addSite(t, "Nord", 45, 9)
	mario := env.addEmployee(t, "mario", domain.RoleEmployee)
	anna := env.addEmployee(t, "anna", domain.RoleEmployee)
	env.addRecord(t, mario, site, reconcile.In, "2025-03-10T08:00")
	env.addRecord(t, anna, site, reconcile.In, "2025-03-10T07:00")
	env.addRecord(t, anna, site, reconcile.Out, "2025-03-10T15:00")

	d, err := svc.Details(ctx, site.ID)
	require.NoError(t, err)
	require.Len(t, d.ClockedIn, 1)
	assert.Equal(t, "mario", d.ClockedIn[0].EmployeeName)

	recs, err := svc.Attendance(ctx, site.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, reconcile.Out, recs[0].Type)
}

func TestWorkSiteService_DeleteWritesArchive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "reports")
	svc := newWorkSiteService(env, dir)
	site := env.addSite(t, "Cantiere Nord/Est", 45, 9)
	mario := env.addEmployee(t, "mario", domain.RoleEmployee)
	env.addRecord(t, mario, site, reconcile.In, "2025-03-10T08:00")
	env.addRecord(t, mario, site, reconcile.Out, "2025-03-10T16:00")

	res, err := svc.Delete(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, "BACKUP_Cantiere_Nord_Est_2025-03-12.xlsx", res.ArchiveFile)
	_, err = os.Stat(filepath.Join(dir, res.ArchiveFile))
	require.NoError(t, err)

	_, err = env.sites.Get(ctx, site.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// records survive without a site
	recs, err := env.attendance.List(ctx, domain.AttendanceFilter{EmployeeID: mario.ID})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Nil(t, recs[0].WorkSiteID)

	report, err := env.reports.Summary(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, report.HoursByKey[reconcile.UnspecifiedSite], 1e-9)
}

func TestWorkSiteService_DeleteAndRenameDropCachedReports(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newWorkSiteService(env, t.TempDir())
	nord := env.addSite(t, "Cantiere Nord", 45, 9)
	sud := env.addSite(t, "Cantiere Sud", 44, 9)
	mario := env.addEmployee(t, "mario", domain.RoleEmployee)
	env.addRecord(t, mario, nord, reconcile.In, "2025-03-10T08:00")
	env.addRecord(t, mario, nord, reconcile.Out, "2025-03-10T16:00")
	env.addRecord(t, mario, sud, reconcile.In, "2025-03-11T08:00")
	env.addRecord(t, mario, sud, reconcile.Out, "2025-03-11T12:00")

	before, err := env.reports.Summary(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Cantiere Nord": 8, "Cantiere Sud": 4}, before.HoursByKey)

	_, err = svc.Delete(ctx, nord.ID)
	require.NoError(t, err)
	_, err = svc.Update(ctx, sud.ID, WorkSiteRequest{Name: "Cantiere Sud 2"})
	require.NoError(t, err)

	after, err := env.reports.Summary(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{reconcile.UnspecifiedSite: 8, "Cantiere Sud 2": 4}, after.HoursByKey)
}
