package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"siteclock/internal/domain"
	"siteclock/internal/reconcile"
	"siteclock/internal/repository"
)

// AttendancePublisher receives every stored record
type AttendancePublisher interface {
	PublishAttendance(ctx context.Context, action string, rec domain.AttendanceRecord)
}

// CacheInvalidator drops cached reports after a write that changes them
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// GeofencePolicy controls the clock-in position check
type GeofencePolicy struct {
	Enforced bool
}

// AttendanceService records clock actions
type AttendanceService struct {
	employees  repository.EmployeesRepo
	sites      repository.WorkSitesRepo
	attendance repository.AttendanceRepo
	publisher  AttendancePublisher
	cache      CacheInvalidator
	geofence   GeofencePolicy
	loc        *time.Location
	now        func() time.Time
	logger     *zap.Logger
}

func NewAttendanceService(
	employees repository.EmployeesRepo,
	sites repository.WorkSitesRepo,
	attendance repository.AttendanceRepo,
	publisher AttendancePublisher,
	cache CacheInvalidator,
	geofence GeofencePolicy,
	loc *time.Location,
	logger *zap.Logger,
) *AttendanceService {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceService{
		employees:  employees,
		sites:      sites,
		attendance: attendance,
		publisher:  publisher,
		cache:      cache,
		geofence:   geofence,
		loc:        loc,
		now:        time.Now,
		logger:     logger,
	}
}

// RecordRequest a clock action sent by the mobile app
type RecordRequest struct {
	EmployeeID int64               `json:"employeeId"`
	WorkSiteID *int64              `json:"workSiteId"`
	Type       reconcile.EventType `json:"type"`
	Timestamp  string              `json:"timestamp"`
	DeviceInfo string              `json:"deviceInfo"`
	Latitude   float64             `json:"latitude"`
	Longitude  float64             `json:"longitude"`
}

// ForceRequest an admin-inserted clock action
type ForceRequest struct {
	EmployeeID int64               `json:"employeeId"`
	WorkSiteID int64               `json:"workSiteId"`
	Type       reconcile.EventType `json:"type"`
	Timestamp  string              `json:"timestamp"`
	Notes      string              `json:"notes"`
}

func (s *AttendanceService) timestamp(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return s.now().In(s.loc), nil
	}
	return domain.ParseTimestamp(raw, s.loc)
}

func (s *AttendanceService) activeEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: employeeId is required", domain.ErrInvalidInput)
	}
	e, err := s.employees.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.IsActive {
		return nil, fmt.Errorf("employee %d: %w", id, domain.ErrNotFound)
	}
	return e, nil
}

func (s *AttendanceService) Record(ctx context.Context, req RecordRequest) (*domain.AttendanceRecord, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: type must be in or out", domain.ErrInvalidInput)
	}
	e, err := s.activeEmployee(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	ts, err := s.timestamp(req.Timestamp)
	if err != nil {
		return nil, err
	}

	rec := domain.AttendanceRecord{
		EmployeeID:   e.ID,
		EmployeeName: e.Name,
		WorkSiteID:   req.WorkSiteID,
		Timestamp:    ts,
		Type:         req.Type,
		DeviceInfo:   strings.TrimSpace(req.DeviceInfo),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	}

	if req.WorkSiteID != nil {
		site, err := s.sites.Get(ctx, *req.WorkSiteID)
		if err != nil {
			return nil, err
		}
		if !site.IsActive {
			return nil, fmt.Errorf("%w: work site %q is not active", domain.ErrInvalidInput, site.Name)
		}
		if s.geofence.Enforced && !site.Contains(req.Latitude, req.Longitude) {
			dist := domain.DistanceMeters(site.Latitude, site.Longitude, req.Latitude, req.Longitude)
			s.logger.Info("Clock rejected outside geofence",
				zap.Int64("employee_id", e.ID),
				zap.Int64("work_site_id", site.ID),
				zap.Float64("distance_m", dist),
			)
			return nil, fmt.Errorf("%w: %.0fm from %q, allowed %.0fm", domain.ErrForbidden, dist, site.Name, site.RadiusMeters)
		}
		rec.WorkSiteName = site.Name
	}

	return s.store(ctx, ActionRecorded, rec)
}

// Force inserts a record on behalf of an employee. A forced OUT that would
// precede the employee's open IN is moved to the following day.
func (s *AttendanceService) Force(ctx context.Context, admin *domain.Employee, req ForceRequest) (*domain.AttendanceRecord, error) {
	if admin == nil || !admin.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", domain.ErrForbidden)
	}
	if req.EmployeeID <= 0 || req.WorkSiteID <= 0 || !req.Type.Valid() {
		return nil, fmt.Errorf("%w: employeeId, workSiteId and type are required", domain.ErrInvalidInput)
	}
	e, err := s.activeEmployee(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	site, err := s.sites.Get(ctx, req.WorkSiteID)
	if err != nil {
		return nil, err
	}
	ts, err := s.timestamp(req.Timestamp)
	if err != nil {
		return nil, err
	}

	if req.Type == reconcile.Out {
		last, err := s.attendance.LastForEmployee(ctx, e.ID)
		switch {
		case err == nil && last.Type == reconcile.In:
			if rolled, ok := RollOver(last.Timestamp, ts); ok {
				s.logger.Info("Forced OUT rolled over midnight",
					zap.Int64("employee_id", e.ID),
					zap.String("from", domain.FormatLocal(ts)),
					zap.String("to", domain.FormatLocal(rolled)),
				)
				ts = rolled
			}
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	adminID := admin.ID
	siteID := site.ID
	rec := domain.AttendanceRecord{
		EmployeeID:      e.ID,
		EmployeeName:    e.Name,
		WorkSiteID:      &siteID,
		WorkSiteName:    site.Name,
		Timestamp:       ts,
		Type:            req.Type,
		DeviceInfo:      domain.ForcedDeviceInfo(admin.Name, req.Notes),
		IsForced:        true,
		ForcedByAdminID: &adminID,
		Notes:           strings.TrimSpace(req.Notes),
	}
	return s.store(ctx, ActionForced, rec)
}

func (s *AttendanceService) store(ctx context.Context, action string, rec domain.AttendanceRecord) (*domain.AttendanceRecord, error) {
	id, err := s.attendance.Create(ctx, &rec)
	if err != nil {
		return nil, err
	}
	rec.ID = id

	s.logger.Info("Attendance stored",
		zap.String("action", action),
		zap.Int64("id", id),
		zap.Int64("employee_id", rec.EmployeeID),
		zap.String("type", string(rec.Type)),
		zap.String("timestamp", domain.FormatLocal(rec.Timestamp)),
	)
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	if s.publisher != nil {
		s.publisher.PublishAttendance(ctx, action, rec)
	}
	return &rec, nil
}

// List returns the records of one employee (or everyone when 0), newest first
func (s *AttendanceService) List(ctx context.Context, employeeID int64, limit int) ([]domain.AttendanceRecord, error) {
	return s.attendance.List(ctx, domain.AttendanceFilter{EmployeeID: employeeID, Descending: true, Limit: limit})
}

// RolloverWindow bounds how far an OUT may precede its IN and still be
// read as having crossed midnight.
const RolloverWindow = 18 * time.Hour

// RollOver moves out forward one day when it precedes in by less than
// RolloverWindow; ok is false when out needs no change.
func RollOver(in, out time.Time) (time.Time, bool) {
	diff := out.Sub(in)
	if diff >= 0 || diff <= -RolloverWindow {
		return out, false
	}
	return out.AddDate(0, 0, 1), true
}
