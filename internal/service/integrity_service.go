package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"siteclock/internal/domain"
	"siteclock/internal/reconcile"
	"siteclock/internal/repository"
)

// Per-employee balance statuses
const (
	StatusOK        = "ok"
	StatusClockedIn = "clocked_in"
	StatusError     = "error"
)

// Orphan problems
const (
	ProblemDuplicateIn  = "duplicate_in"
	ProblemDuplicateOut = "duplicate_out"
	ProblemOutWithoutIn = "out_without_in"
)

// EmployeeBalance IN/OUT counts of one employee
type EmployeeBalance struct {
	repository.EmployeeCounts
	Status string `json:"status"`
}

// Orphan is a record that cannot be paired
type Orphan struct {
	RecordID     int64               `json:"recordId"`
	EmployeeID   int64               `json:"employeeId"`
	EmployeeName string              `json:"employeeName"`
	Type         reconcile.EventType `json:"type"`
	Timestamp    time.Time           `json:"timestamp"`
	Problem      string              `json:"problem"`
}

// TimestampFix moves an OUT recorded with the IN's date to the next day
type TimestampFix struct {
	EmployeeID   int64     `json:"employeeId"`
	EmployeeName string    `json:"employeeName"`
	WorkSiteName string    `json:"workSiteName"`
	InID         int64     `json:"inId"`
	OutID        int64     `json:"outId"`
	In           time.Time `json:"in"`
	Out          time.Time `json:"out"`
	FixedOut     time.Time `json:"fixedOut"`
	OldHours     float64   `json:"oldHours"`
	NewHours     float64   `json:"newHours"`
}

// IntegrityReport is the full database check
type IntegrityReport struct {
	Employees []EmployeeBalance `json:"employees"`
	Orphans   []Orphan          `json:"orphans"`
	Fixes     []TimestampFix    `json:"fixes"`
	Healthy   bool              `json:"healthy"`
}

// IntegrityService audits attendance records for pairing problems
type IntegrityService struct {
	attendance repository.AttendanceRepo
	cache      CacheInvalidator
	logger     *zap.Logger
}

func NewIntegrityService(attendance repository.AttendanceRepo, cache CacheInvalidator, logger *zap.Logger) *IntegrityService {
	return &IntegrityService{attendance: attendance, cache: cache, logger: logger}
}

func balanceStatus(ins, outs int) string {
	switch ins - outs {
	case 0:
		return StatusOK
	case 1:
		return StatusClockedIn
	default:
		return StatusError
	}
}

func (s *IntegrityService) Check(ctx context.Context) (*IntegrityReport, error) {
	counts, err := s.attendance.CountsByEmployee(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := s.attendance.List(ctx, domain.AttendanceFilter{})
	if err != nil {
		return nil, err
	}

	report := &IntegrityReport{
		Employees: make([]EmployeeBalance, 0, len(counts)),
		Orphans:   FindOrphans(recs),
		Fixes:     ProposeFixes(recs),
		Healthy:   true,
	}
	for _, c := range counts {
		b := EmployeeBalance{EmployeeCounts: c, Status: balanceStatus(c.Ins, c.Outs)}
		if b.Status == StatusError {
			report.Healthy = false
		}
		report.Employees = append(report.Employees, b)
	}
	if len(report.Orphans) > 0 || len(report.Fixes) > 0 {
		report.Healthy = false
	}
	return report, nil
}

// FindOrphans walks each employee's records in time order and flags a
// repeated type or an OUT with nothing before it.
func FindOrphans(recs []domain.AttendanceRecord) []Orphan {
	sorted := append([]domain.AttendanceRecord(nil), recs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})

	out := []Orphan{}
	var prev *domain.AttendanceRecord
	for i := range sorted {
		r := sorted[i]
		if prev != nil && prev.EmployeeID != r.EmployeeID {
			prev = nil
		}
		problem := ""
		switch {
		case prev == nil && r.Type == reconcile.Out:
			problem = ProblemOutWithoutIn
		case prev != nil && prev.Type == r.Type && r.Type == reconcile.In:
			problem = ProblemDuplicateIn
		case prev != nil && prev.Type == r.Type && r.Type == reconcile.Out:
			problem = ProblemDuplicateOut
		}
		if problem != "" {
			out = append(out, Orphan{
				RecordID:     r.ID,
				EmployeeID:   r.EmployeeID,
				EmployeeName: r.EmployeeName,
				Type:         r.Type,
				Timestamp:    r.Timestamp,
				Problem:      problem,
			})
		}
		prev = &sorted[i]
	}
	return out
}

// ProposeFixes pairs each employee's records in insertion (id) order and
// proposes moving an OUT forward a day when it precedes its IN by less than
// RolloverWindow.
func ProposeFixes(recs []domain.AttendanceRecord) []TimestampFix {
	byID := append([]domain.AttendanceRecord(nil), recs...)
	sort.SliceStable(byID, func(i, j int) bool {
		if byID[i].EmployeeID != byID[j].EmployeeID {
			return byID[i].EmployeeID < byID[j].EmployeeID
		}
		return byID[i].ID < byID[j].ID
	})

	fixes := []TimestampFix{}
	var lastIn *domain.AttendanceRecord
	for i := range byID {
		r := byID[i]
		if lastIn != nil && lastIn.EmployeeID != r.EmployeeID {
			lastIn = nil
		}
		if r.Type == reconcile.In {
			lastIn = &byID[i]
			continue
		}
		if lastIn == nil {
			continue
		}
		if fixed, ok := RollOver(lastIn.Timestamp, r.Timestamp); ok {
			fixes = append(fixes, TimestampFix{
				EmployeeID:   r.EmployeeID,
				EmployeeName: r.EmployeeName,
				WorkSiteName: r.WorkSiteName,
				InID:         lastIn.ID,
				OutID:        r.ID,
				In:           lastIn.Timestamp,
				Out:          r.Timestamp,
				FixedOut:     fixed,
				OldHours:     r.Timestamp.Sub(lastIn.Timestamp).Hours(),
				NewHours:     fixed.Sub(lastIn.Timestamp).Hours(),
			})
		}
		lastIn = nil
	}
	return fixes
}

// ApplyFixes persists the proposed OUT timestamps
func (s *IntegrityService) ApplyFixes(ctx context.Context, fixes []TimestampFix) (int, error) {
	applied := 0
	for _, f := range fixes {
		if err := s.attendance.UpdateTimestamp(ctx, f.OutID, f.FixedOut); err != nil {
			return applied, err
		}
		applied++
		s.logger.Info("Timestamp fixed",
			zap.Int64("record_id", f.OutID),
			zap.String("from", domain.FormatLocal(f.Out)),
			zap.String("to", domain.FormatLocal(f.FixedOut)),
		)
	}
	if applied > 0 && s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	return applied, nil
}

// FixTimestamps proposes and, unless dryRun, applies timestamp fixes
func (s *IntegrityService) FixTimestamps(ctx context.Context, dryRun bool) ([]TimestampFix, int, error) {
	recs, err := s.attendance.List(ctx, domain.AttendanceFilter{})
	if err != nil {
		return nil, 0, err
	}
	fixes := ProposeFixes(recs)
	if dryRun {
		return fixes, 0, nil
	}
	n, err := s.ApplyFixes(ctx, fixes)
	return fixes, n, err
}

// DeleteOrphans removes every record FindOrphans reports
func (s *IntegrityService) DeleteOrphans(ctx context.Context) (int64, error) {
	recs, err := s.attendance.List(ctx, domain.AttendanceFilter{})
	if err != nil {
		return 0, err
	}
	orphans := FindOrphans(recs)
	ids := make([]int64, 0, len(orphans))
	for _, o := range orphans {
		ids = append(ids, o.RecordID)
	}
	n, err := s.attendance.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Warn("Orphan records deleted", zap.Int64("count", n))
		if s.cache != nil {
			s.cache.Invalidate(ctx)
		}
	}
	return n, nil
}
