package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"siteclock/internal/service"
)

// WorkSiteHandler /api/worksites
type WorkSiteHandler struct {
	sites  *service.WorkSiteService
	logger *zap.Logger
}

func NewWorkSiteHandler(sites *service.WorkSiteService, logger *zap.Logger) *WorkSiteHandler {
	return &WorkSiteHandler{sites: sites, logger: logger}
}

// Collection GET|POST /api/worksites. Everyone sees active sites; admins
// may ask for all of them and create new ones.
func (h *WorkSiteHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := !(isAdmin(r) && r.URL.Query().Get("all") == "true")
		list, err := h.sites.List(r.Context(), activeOnly)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(list))
	case http.MethodPost:
		if !isAdmin(r) {
			forbidden(w)
			return
		}
		var req service.WorkSiteRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
		site, err := h.sites.Create(r.Context(), req)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, Ok(site))
	default:
		methodNotAllowed(w)
	}
}

// Item handles /api/worksites/{id}, /{id}/details and /{id}/attendance
func (h *WorkSiteHandler) Item(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r.URL.Path, "/api/worksites/")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	switch {
	case rest == "details" && r.Method == http.MethodGet:
		d, err := h.sites.Details(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(d))
	case rest == "attendance" && r.Method == http.MethodGet:
		if !isAdmin(r) {
			forbidden(w)
			return
		}
		recs, err := h.sites.Attendance(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(recs))
	case rest == "" && r.Method == http.MethodPut:
		if !isAdmin(r) {
			forbidden(w)
			return
		}
		var req service.WorkSiteRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
		site, err := h.sites.Update(r.Context(), id, req)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(site))
	case rest == "" && r.Method == http.MethodDelete:
		if !isAdmin(r) {
			forbidden(w)
			return
		}
		res, err := h.sites.Delete(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(res))
	case rest == "details" || rest == "attendance" || rest == "":
		methodNotAllowed(w)
	default:
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	}
}
