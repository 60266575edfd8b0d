package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"siteclock/internal/service"
)

// EmployeeHandler /api/employees
type EmployeeHandler struct {
	employees *service.EmployeeService
	logger    *zap.Logger
}

func NewEmployeeHandler(employees *service.EmployeeService, logger *zap.Logger) *EmployeeHandler {
	return &EmployeeHandler{employees: employees, logger: logger}
}

// Collection GET|POST /api/employees
func (h *EmployeeHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.employees.List(r.Context(), r.URL.Query().Get("includeInactive") == "true")
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(list))
	case http.MethodPost:
		var req service.EmployeeRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
		e, err := h.employees.Create(r.Context(), req)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, Ok(e))
	default:
		methodNotAllowed(w)
	}
}

// Item PUT|DELETE /api/employees/{id}
func (h *EmployeeHandler) Item(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r.URL.Path, "/api/employees/")
	if err == nil && rest != "" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req service.EmployeeRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
		e, err := h.employees.Update(r.Context(), id, req)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(e))
	case http.MethodDelete:
		if err := h.employees.Delete(r.Context(), caller(r).ID, id); err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]int64{"id": id}))
	default:
		methodNotAllowed(w)
	}
}
