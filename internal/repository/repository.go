package repository

import (
	"context"
	"time"

	"siteclock/internal/domain"
)

// EmployeesRepo employee accounts
type EmployeesRepo interface {
	List(ctx context.Context, includeInactive bool) ([]domain.Employee, error)
	Get(ctx context.Context, id int64) (*domain.Employee, error)
	// GetByLogin matches username or email, trimmed and case-insensitive, active accounts only
	GetByLogin(ctx context.Context, login string) (*domain.Employee, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, e *domain.Employee) (int64, error)
	// Update leaves the password untouched when e.PasswordHash is empty
	Update(ctx context.Context, e *domain.Employee) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	CountActiveAdmins(ctx context.Context) (int, error)
}

// WorkSitesRepo construction sites
type WorkSitesRepo interface {
	List(ctx context.Context, activeOnly bool) ([]domain.WorkSite, error)
	Get(ctx context.Context, id int64) (*domain.WorkSite, error)
	Create(ctx context.Context, w *domain.WorkSite) (int64, error)
	Update(ctx context.Context, w *domain.WorkSite) error
	Delete(ctx context.Context, id int64) error
}

// AttendanceRepo clock records. Listed records carry joined employee and site names.
type AttendanceRepo interface {
	Create(ctx context.Context, r *domain.AttendanceRecord) (int64, error)
	List(ctx context.Context, f domain.AttendanceFilter) ([]domain.AttendanceRecord, error)
	LastForEmployee(ctx context.Context, employeeID int64) (*domain.AttendanceRecord, error)
	// ClockedInAt returns the last record of every employee whose last record is an IN at siteID
	ClockedInAt(ctx context.Context, siteID int64) ([]domain.AttendanceRecord, error)
	UpdateTimestamp(ctx context.Context, id int64, ts time.Time) error
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	CountsByEmployee(ctx context.Context) ([]EmployeeCounts, error)
}

// EmployeeCounts IN/OUT totals of one employee
type EmployeeCounts struct {
	EmployeeID   int64  `json:"employeeId"`
	EmployeeName string `json:"employeeName"`
	Ins          int    `json:"ins"`
	Outs         int    `json:"outs"`
}
