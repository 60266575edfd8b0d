package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"siteclock/internal/domain"
	"siteclock/internal/excel"
	"siteclock/internal/repository"
)

// WorkSiteService manages construction sites
type WorkSiteService struct {
	sites         repository.WorkSitesRepo
	attendance    repository.AttendanceRepo
	cache         CacheInvalidator
	reportsDir    string
	defaultRadius float64
	loc           *time.Location
	now           func() time.Time
	logger        *zap.Logger
}

func NewWorkSiteService(sites repository.WorkSitesRepo, attendance repository.AttendanceRepo, cache CacheInvalidator,
	reportsDir string, defaultRadius float64, loc *time.Location, logger *zap.Logger) *WorkSiteService {
	if defaultRadius <= 0 {
		defaultRadius = domain.DefaultRadiusMeters
	}
	if loc == nil {
		loc = time.Local
	}
	return &WorkSiteService{
		sites:         sites,
		attendance:    attendance,
		cache:         cache,
		reportsDir:    reportsDir,
		defaultRadius: defaultRadius,
		loc:           loc,
		now:           time.Now,
		logger:        logger,
	}
}

// WorkSiteRequest create/update payload
type WorkSiteRequest struct {
	Name         string   `json:"name"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Address      string   `json:"address"`
	Description  string   `json:"description"`
	IsActive     *bool    `json:"isActive"`
	RadiusMeters float64  `json:"radiusMeters"`
}

// WorkSiteDetails a site plus who is on it right now
type WorkSiteDetails struct {
	domain.WorkSite
	ClockedIn []ClockedInEmployee `json:"clockedIn"`
}

// ClockedInEmployee an employee whose last record is an IN at the site
type ClockedInEmployee struct {
	EmployeeID   int64     `json:"employeeId"`
	EmployeeName string    `json:"employeeName"`
	Since        time.Time `json:"since"`
	IsForced     bool      `json:"isForced"`
}

// DeleteResult reports where the archive was written
type DeleteResult struct {
	ArchiveFile string `json:"archiveFile"`
	Records     int    `json:"records"`
}

func (s *WorkSiteService) List(ctx context.Context, activeOnly bool) ([]domain.WorkSite, error) {
	return s.sites.List(ctx, activeOnly)
}

func (s *WorkSiteService) Create(ctx context.Context, req WorkSiteRequest) (*domain.WorkSite, error) {
	if strings.TrimSpace(req.Name) == "" || req.Latitude == nil || req.Longitude == nil || strings.TrimSpace(req.Address) == "" {
		return nil, fmt.Errorf("%w: name, latitude, longitude and address are required", domain.ErrInvalidInput)
	}
	w := &domain.WorkSite{
		Name:         strings.TrimSpace(req.Name),
		Latitude:     *req.Latitude,
		Longitude:    *req.Longitude,
		Address:      strings.TrimSpace(req.Address),
		Description:  strings.TrimSpace(req.Description),
		IsActive:     true,
		RadiusMeters: req.RadiusMeters,
		CreatedAt:    s.now().In(s.loc),
	}
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}
	if w.RadiusMeters <= 0 {
		w.RadiusMeters = s.defaultRadius
	}
	if err := validateCoordinates(w.Latitude, w.Longitude); err != nil {
		return nil, err
	}

	id, err := s.sites.Create(ctx, w)
	if err != nil {
		return nil, err
	}
	w.ID = id
	s.logger.Info("Work site created", zap.Int64("work_site_id", id), zap.String("name", w.Name))
	return w, nil
}

func (s *WorkSiteService) Update(ctx context.Context, id int64, req WorkSiteRequest) (*domain.WorkSite, error) {
	w, err := s.sites.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		w.Name = name
	}
	if req.Latitude != nil {
		w.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		w.Longitude = *req.Longitude
	}
	if addr := strings.TrimSpace(req.Address); addr != "" {
		w.Address = addr
	}
	w.Description = strings.TrimSpace(req.Description)
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}
	if req.RadiusMeters > 0 {
		w.RadiusMeters = req.RadiusMeters
	}
	if err := validateCoordinates(w.Latitude, w.Longitude); err != nil {
		return nil, err
	}
	if err := s.sites.Update(ctx, w); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return w, nil
}

func (s *WorkSiteService) Details(ctx context.Context, id int64) (*WorkSiteDetails, error) {
	w, err := s.sites.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	recs, err := s.attendance.ClockedInAt(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &WorkSiteDetails{WorkSite: *w, ClockedIn: make([]ClockedInEmployee, 0, len(recs))}
	for _, r := range recs {
		d.ClockedIn = append(d.ClockedIn, ClockedInEmployee{
			EmployeeID:   r.EmployeeID,
			EmployeeName: r.EmployeeName,
			Since:        r.Timestamp,
			IsForced:     r.IsForced,
		})
	}
	return d, nil
}

// Attendance lists the records of a site, newest first
func (s *WorkSiteService) Attendance(ctx context.Context, id int64) ([]domain.AttendanceRecord, error) {
	if _, err := s.sites.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.attendance.List(ctx, domain.AttendanceFilter{WorkSiteID: id, Descending: true})
}

// Delete archives every record of the site to REPORTS_DIR, then deletes it.
// Nothing is deleted when the archive cannot be written.
func (s *WorkSiteService) Delete(ctx context.Context, id int64) (*DeleteResult, error) {
	w, err := s.sites.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	recs, err := s.attendance.List(ctx, domain.AttendanceFilter{WorkSiteID: id, Descending: true})
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	data, err := excel.WorkSiteArchive(*w, recs, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build archive: %w", err)
	}
	if err := os.MkdirAll(s.reportsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports dir: %w", err)
	}
	path := filepath.Join(s.reportsDir, excel.ArchiveFileName(w.Name, now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	s.logger.Info("Work site archived", zap.Int64("work_site_id", id), zap.String("file", path), zap.Int("records", len(recs)))

	if err := s.sites.Delete(ctx, id); err != nil {
		return nil, err
	}
	// records now report under UnspecifiedSite
	s.invalidate(ctx)
	return &DeleteResult{ArchiveFile: filepath.Base(path), Records: len(recs)}, nil
}

func (s *WorkSiteService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func validateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	}
	return nil
}
