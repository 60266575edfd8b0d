package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"siteclock/internal/domain"
	"siteclock/internal/excel"
	"siteclock/internal/service"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels to HTTP statuses; anything else is a 500
// and is logged.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, Fail(msg))
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", excel.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, Fail("method not allowed"))
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// parseID reads an optional positive id; "" yields 0
func parseID(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", domain.ErrInvalidInput, s)
	}
	return id, nil
}

// pathID splits "/prefix/{id}/rest" into id and "rest"
func pathID(path, prefix string) (int64, string, error) {
	tail := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	idPart, rest, _ := strings.Cut(tail, "/")
	if idPart == "" {
		return 0, "", fmt.Errorf("%w: missing id", domain.ErrInvalidInput)
	}
	id, err := parseID(idPart)
	return id, rest, err
}

// parseDateParam accepts any timestamp layout; a bare date used as an upper
// bound extends to the end of that day.
func parseDateParam(value string, loc *time.Location, upper bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := domain.ParseTimestamp(value, loc)
	if err != nil {
		return time.Time{}, err
	}
	if upper && len(value) == len("2006-01-02") {
		t = domain.EndOfDay(t)
	}
	return t, nil
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidInput)
	}
	return nil
}

// parseReportFilter reads employeeId, workSiteId, start and end from the query
func parseReportFilter(r *http.Request, loc *time.Location) (service.ReportFilter, error) {
	q := r.URL.Query()
	var f service.ReportFilter
	var err error
	if f.EmployeeID, err = parseID(q.Get("employeeId")); err != nil {
		return f, err
	}
	if f.WorkSiteID, err = parseID(q.Get("workSiteId")); err != nil {
		return f, err
	}
	if f.Start, err = parseDateParam(q.Get("start"), loc, false); err != nil {
		return f, err
	}
	if f.End, err = parseDateParam(q.Get("end"), loc, true); err != nil {
		return f, err
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return f, fmt.Errorf("%w: end before start", domain.ErrInvalidInput)
	}
	return f, nil
}
