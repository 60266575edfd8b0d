package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"siteclock/internal/service"
)

// AttendanceHandler /api/attendance
type AttendanceHandler struct {
	attendance *service.AttendanceService
	reports    *service.ReportService
	loc        *time.Location
	logger     *zap.Logger
}

func NewAttendanceHandler(attendance *service.AttendanceService, reports *service.ReportService, loc *time.Location, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, reports: reports, loc: loc, logger: logger}
}

// Collection GET|POST /api/attendance. Non-admins only see and clock
// for themselves.
func (h *AttendanceHandler) Collection(w http.ResponseWriter, r *http.Request) {
	me := caller(r)
	switch r.Method {
	case http.MethodGet:
		employeeID, err := parseID(r.URL.Query().Get("employeeId"))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if !me.IsAdmin() {
			employeeID = me.ID
		}
		recs, err := h.attendance.List(r.Context(), employeeID, parseInt(r.URL.Query().Get("limit"), 0))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(recs))
	case http.MethodPost:
		var req service.RecordRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
		if !me.IsAdmin() || req.EmployeeID == 0 {
			req.EmployeeID = me.ID
		}
		rec, err := h.attendance.Record(r.Context(), req)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, Ok(rec))
	default:
		methodNotAllowed(w)
	}
}

// Force POST /api/attendance/force
func (h *AttendanceHandler) Force(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req service.ForceRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	rec, err := h.attendance.Force(r.Context(), caller(r), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(rec))
}

// Report GET /api/attendance/report streams the register workbook
func (h *AttendanceHandler) Report(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	f, err := parseReportFilter(r, h.loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	data, err := h.reports.AttendanceRegister(r.Context(), f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeXLSX(w, "attendance_report.xlsx", data)
}
