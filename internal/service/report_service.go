package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"siteclock/internal/domain"
	"siteclock/internal/excel"
	"siteclock/internal/reconcile"
	"siteclock/internal/repository"
	"siteclock/internal/store"
)

const (
	reportCachePrefix = "report:"
	reportCacheTTL    = 10 * time.Minute
)

// ReportFilter scopes a report. Zero values mean "any"/open.
type ReportFilter struct {
	EmployeeID int64     `json:"employeeId,omitempty"`
	WorkSiteID int64     `json:"workSiteId,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`

	// CloseWithin widens the fetch past End so sessions started before End
	// can be closed by a later OUT; sessions started after End are dropped.
	CloseWithin time.Duration `json:"closeWithin,omitempty"`
}

func (f ReportFilter) closing() bool {
	return f.CloseWithin > 0 && !f.End.IsZero()
}

func (f ReportFilter) attendance(desc bool) domain.AttendanceFilter {
	return domain.AttendanceFilter{
		EmployeeID: f.EmployeeID,
		WorkSiteID: f.WorkSiteID,
		Start:      f.Start,
		End:        f.End,
		Descending: desc,
	}
}

func (f ReportFilter) cacheKey(kind string) string {
	stamp := func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return domain.FormatLocal(t)
	}
	return fmt.Sprintf("%s%s:e%d:s%d:%s:%s:c%d", reportCachePrefix, kind, f.EmployeeID, f.WorkSiteID, stamp(f.Start), stamp(f.End), int64(f.CloseWithin/time.Minute))
}

// HoursReport is the JSON worked-hours report
type HoursReport struct {
	Filter ReportFilter `json:"filter"`
	reconcile.Summary
	Anomalies   []reconcile.Session `json:"anomalies"`
	GeneratedAt time.Time           `json:"generatedAt"`
}

// ReportService builds worked-hours summaries and workbooks from attendance
type ReportService struct {
	attendance repository.AttendanceRepo
	kv         store.KV
	reportsDir string
	loc        *time.Location
	now        func() time.Time
	logger     *zap.Logger
}

func NewReportService(attendance repository.AttendanceRepo, kv store.KV, reportsDir string, loc *time.Location, logger *zap.Logger) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{attendance: attendance, kv: kv, reportsDir: reportsDir, loc: loc, now: time.Now, logger: logger}
}

func (s *ReportService) events(ctx context.Context, f ReportFilter) ([]reconcile.Event, error) {
	af := f.attendance(false)
	if f.closing() {
		af.End = f.End.Add(f.CloseWithin)
	}
	recs, err := s.attendance.List(ctx, af)
	if err != nil {
		return nil, err
	}
	return domain.ToEvents(recs), nil
}

// Summary reconciles the scope and returns totals, per-site hours, daily
// breakdown and anomalies. Results are cached until the next clock action.
func (s *ReportService) Summary(ctx context.Context, f ReportFilter) (*HoursReport, error) {
	key := f.cacheKey("summary")
	if cached, ok := s.cached(ctx, key); ok {
		return cached, nil
	}

	events, err := s.events(ctx, f)
	if err != nil {
		return nil, err
	}
	res := reconcile.Reconcile(events)
	if f.closing() {
		res = res.Until(f.End)
	}
	report := &HoursReport{
		Filter:      f,
		Summary:     reconcile.Summarize(res),
		Anomalies:   res.Anomalies(),
		GeneratedAt: s.now().In(s.loc).Round(0),
	}
	if report.Anomalies == nil {
		report.Anomalies = []reconcile.Session{}
	}

	if s.kv != nil {
		if data, err := json.Marshal(report); err == nil {
			if err := s.kv.Set(ctx, key, string(data), reportCacheTTL); err != nil {
				s.logger.Warn("Failed to cache report", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return report, nil
}

func (s *ReportService) cached(ctx context.Context, key string) (*HoursReport, bool) {
	if s.kv == nil {
		return nil, false
	}
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("Report cache unavailable", zap.Error(err))
		}
		return nil, false
	}
	var report HoursReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, false
	}
	report.anchor(s.loc)
	return &report, true
}

// anchor moves the times decoded from the cache (fixed-offset zones) back
// into loc, so cached and fresh reports compare equal.
func (r *HoursReport) anchor(loc *time.Location) {
	in := func(t *time.Time) {
		if !t.IsZero() {
			*t = t.In(loc)
		}
	}
	sessions := func(list []reconcile.Session) {
		for i := range list {
			in(&list[i].TimeIn)
			in(&list[i].TimeOut)
		}
	}
	in(&r.Filter.Start)
	in(&r.Filter.End)
	in(&r.GeneratedAt)
	for i := range r.Days {
		sessions(r.Days[i].Sessions)
	}
	sessions(r.Anomalies)
}

// Invalidate drops every cached report
func (s *ReportService) Invalidate(ctx context.Context) {
	if s.kv == nil {
		return
	}
	if err := store.DeletePattern(ctx, s.kv, reportCachePrefix+"*"); err != nil {
		s.logger.Warn("Failed to invalidate report cache", zap.Error(err))
	}
}

// EmployeeSummaries reconciles every employee in scope separately
func (s *ReportService) EmployeeSummaries(ctx context.Context, f ReportFilter) ([]reconcile.EmployeeSummary, error) {
	events, err := s.events(ctx, f)
	if err != nil {
		return nil, err
	}
	if f.closing() {
		return reconcile.SummarizeByEmployeeUntil(events, f.End), nil
	}
	return reconcile.SummarizeByEmployee(events), nil
}

// AttendanceRegister renders the raw register, newest first
func (s *ReportService) AttendanceRegister(ctx context.Context, f ReportFilter) ([]byte, error) {
	recs, err := s.attendance.List(ctx, f.attendance(true))
	if err != nil {
		return nil, err
	}
	return excel.AttendanceRegister(recs)
}

func (s *ReportService) HoursWorkbook(ctx context.Context, f ReportFilter) ([]byte, error) {
	summaries, err := s.EmployeeSummaries(ctx, f)
	if err != nil {
		return nil, err
	}
	return excel.HoursWorkbook(summaries)
}

// SaveRegister writes the register to the reports directory as
// attendance_report.xlsx, or attendance_report_{uuid}.xlsx when unique.
func (s *ReportService) SaveRegister(ctx context.Context, f ReportFilter, unique bool) (string, error) {
	data, err := s.AttendanceRegister(ctx, f)
	if err != nil {
		return "", err
	}
	name := "attendance_report.xlsx"
	if unique {
		name = fmt.Sprintf("attendance_report_%s.xlsx", uuid.NewString())
	}
	return s.write(name, data)
}

// SaveHoursWorkbook writes the hours workbook under name in the reports directory
func (s *ReportService) SaveHoursWorkbook(ctx context.Context, f ReportFilter, name string) (string, error) {
	data, err := s.HoursWorkbook(ctx, f)
	if err != nil {
		return "", err
	}
	return s.write(name, data)
}

func (s *ReportService) write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}
	path := filepath.Join(s.reportsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	s.logger.Info("Report written", zap.String("file", path), zap.Int("bytes", len(data)))
	return path, nil
}
