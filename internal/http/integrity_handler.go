package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"siteclock/internal/service"
)

// IntegrityHandler /api/admin/integrity
type IntegrityHandler struct {
	integrity *service.IntegrityService
	logger    *zap.Logger
}

func NewIntegrityHandler(integrity *service.IntegrityService, logger *zap.Logger) *IntegrityHandler {
	return &IntegrityHandler{integrity: integrity, logger: logger}
}

// Check GET /api/admin/integrity
func (h *IntegrityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	report, err := h.integrity.Check(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// FixTimestampsResult proposed fixes and how many were written
type FixTimestampsResult struct {
	DryRun  bool                   `json:"dryRun"`
	Fixes   []service.TimestampFix `json:"fixes"`
	Applied int                    `json:"applied"`
}

// FixTimestamps POST /api/admin/integrity/fix-timestamps[?apply=true]
func (h *IntegrityHandler) FixTimestamps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	dryRun := r.URL.Query().Get("apply") != "true"
	fixes, applied, err := h.integrity.FixTimestamps(r.Context(), dryRun)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(FixTimestampsResult{DryRun: dryRun, Fixes: fixes, Applied: applied}))
}

// DeleteOrphans POST /api/admin/integrity/delete-orphans
func (h *IntegrityHandler) DeleteOrphans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	n, err := h.integrity.DeleteOrphans(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int64{"deleted": n}))
}
