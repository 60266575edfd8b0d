package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"siteclock/internal/domain"
	"siteclock/internal/reconcile"
	"siteclock/internal/repository"
	"siteclock/internal/store"
)

var rome = mustLocation("Europe/Rome")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func at(s string) time.Time {
	t, err := domain.ParseTimestamp(s, rome)
	if err != nil {
		panic(err)
	}
	return t
}

// testEnv wires the services over the in-memory repositories
type testEnv struct {
	employees  *repository.MemoryEmployeesRepo
	sites      *repository.MemoryWorkSitesRepo
	attendance *repository.MemoryAttendanceRepo
	kv         *store.MemoryKV
	reports    *ReportService
	publisher  *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	employees, sites, attendance := repository.NewMemoryRepos()
	kv := store.NewMemoryKV()
	return &testEnv{
		employees:  employees,
		sites:      sites,
		attendance: attendance,
		kv:         kv,
		reports:    NewReportService(attendance, kv, t.TempDir(), rome, zap.NewNop()),
		publisher:  &recordingPublisher{},
	}
}

func (e *testEnv) attendanceService(enforced bool) *AttendanceService {
	return NewAttendanceService(e.employees, e.sites, e.attendance, e.publisher, e.reports,
		GeofencePolicy{Enforced: enforced}, rome, zap.NewNop())
}

func (e *testEnv) addEmployee(t *testing.T, name string, role domain.Role) *domain.Employee {
	t.Helper()
	emp := &domain.Employee{Name: name, Username: normalizeUsername(name), PasswordHash: HashPassword("secret"), Role: role, IsActive: true}
	id, err := e.employees.Create(context.Background(), emp)
	require.NoError(t, err)
	emp.ID = id
	return emp
}

func (e *testEnv) addSite(t *testing.T, name string, lat, lng float64) *domain.WorkSite {
	t.Helper()
	w := &domain.WorkSite{Name: name, Latitude: lat, Longitude: lng, Address: "Via Roma 1", IsActive: true, RadiusMeters: 100}
	id, err := e.sites.Create(context.Background(), w)
	require.NoError(t, err)
	w.ID = id
	return w
}

func (e *testEnv) addRecord(t *testing.T, emp *domain.Employee, site *domain.WorkSite, typ reconcile.EventType, ts string) int64 {
	t.Helper()
	rec := &domain.AttendanceRecord{EmployeeID: emp.ID, Type: typ, Timestamp: at(ts)}
	if site != nil {
		id := site.ID
		rec.WorkSiteID = &id
	}
	id, err := e.attendance.Create(context.Background(), rec)
	require.NoError(t, err)
	return id
}

// recordingPublisher captures published events
type recordingPublisher struct {
	events []AttendanceEvent
}

func (p *recordingPublisher) PublishAttendance(_ context.Context, action string, rec domain.AttendanceRecord) {
	p.events = append(p.events, AttendanceEvent{Action: action, Record: rec})
}

// MockMessagePublisher is the testify mock of the MQTT surface
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	args := m.Called(topic, qos, retained, payload)
	return args.Error(0)
}

func (m *MockMessagePublisher) QoS() byte {
	args := m.Called()
	return args.Get(0).(byte)
}

// MockAnomalyNotifier is the testify mock of AnomalyNotifier
type MockAnomalyNotifier struct {
	mock.Mock
}

func (m *MockAnomalyNotifier) NotifyAnomalies(ctx context.Context, period string, anomalies []reconcile.Session) error {
	args := m.Called(ctx, period, anomalies)
	return args.Error(0)
}
