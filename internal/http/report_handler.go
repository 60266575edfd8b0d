package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"siteclock/internal/service"
)

// ReportHandler /api/reports
type ReportHandler struct {
	reports *service.ReportService
	loc     *time.Location
	logger  *zap.Logger
}

func NewReportHandler(reports *service.ReportService, loc *time.Location, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, loc: loc, logger: logger}
}

// filter scopes non-admins to their own hours
func (h *ReportHandler) filter(w http.ResponseWriter, r *http.Request) (service.ReportFilter, bool) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return service.ReportFilter{}, false
	}
	f, err := parseReportFilter(r, h.loc)
	if err != nil {
		writeError(w, h.logger, err)
		return f, false
	}
	if me := caller(r); !me.IsAdmin() {
		f.EmployeeID = me.ID
	}
	return f, true
}

// Hours GET /api/reports/hours
func (h *ReportHandler) Hours(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	report, err := h.reports.Summary(r.Context(), f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// HoursWorkbook GET /api/reports/hours.xlsx
func (h *ReportHandler) HoursWorkbook(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	data, err := h.reports.HoursWorkbook(r.Context(), f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeXLSX(w, fmt.Sprintf("ore_lavorate_%s.xlsx", time.Now().In(h.loc).Format("2006-01-02")), data)
}

// Employees GET /api/reports/employees
func (h *ReportHandler) Employees(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	list, err := h.reports.EmployeeSummaries(r.Context(), f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}
