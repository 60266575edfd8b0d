package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router uses the standard http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler wraps the router with request logging
func (r *Router) Handler() http.Handler {
	return RequestLogger(r, r.logger)
}

// Handlers groups every API handler for registration
type Handlers struct {
	Auth       *AuthHandler
	Employees  *EmployeeHandler
	WorkSites  *WorkSiteHandler
	Attendance *AttendanceHandler
	Reports    *ReportHandler
	Integrity  *IntegrityHandler
}

// RegisterRoutes mounts the /api tree; a nil handler group is skipped
func (r *Router) RegisterRoutes(a *Authenticator, h Handlers) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})

	if h.Auth != nil {
		r.Handle("/api/login", h.Auth.Login)
		r.Handle("/api/logout", a.Require(h.Auth.Logout))
		r.Handle("/api/me", a.Require(h.Auth.Me))
	}
	if h.Employees != nil {
		r.Handle("/api/employees", a.RequireAdmin(h.Employees.Collection))
		r.Handle("/api/employees/", a.RequireAdmin(h.Employees.Item))
	}
	if h.WorkSites != nil {
		r.Handle("/api/worksites", a.Require(h.WorkSites.Collection))
		r.Handle("/api/worksites/", a.Require(h.WorkSites.Item))
	}
	if h.Attendance != nil {
		r.Handle("/api/attendance", a.Require(h.Attendance.Collection))
		r.Handle("/api/attendance/force", a.RequireAdmin(h.Attendance.Force))
		r.Handle("/api/attendance/report", a.RequireAdmin(h.Attendance.Report))
	}
	if h.Reports != nil {
		r.Handle("/api/reports/hours", a.Require(h.Reports.Hours))
		r.Handle("/api/reports/hours.xlsx", a.Require(h.Reports.HoursWorkbook))
		r.Handle("/api/reports/employees", a.RequireAdmin(h.Reports.Employees))
	}
	if h.Integrity != nil {
		r.Handle("/api/admin/integrity", a.RequireAdmin(h.Integrity.Check))
		r.Handle("/api/admin/integrity/fix-timestamps", a.RequireAdmin(h.Integrity.FixTimestamps))
		r.Handle("/api/admin/integrity/delete-orphans", a.RequireAdmin(h.Integrity.DeleteOrphans))
	}
}
