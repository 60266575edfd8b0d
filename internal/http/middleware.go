package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"siteclock/internal/domain"
	"siteclock/internal/service"
)

type ctxKey int

const employeeKey ctxKey = iota

// Authenticator resolves bearer tokens into employees
type Authenticator struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewAuthenticator(auth *service.AuthService, logger *zap.Logger) *Authenticator {
	return &Authenticator{auth: auth, logger: logger}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Require rejects requests without a valid session and forwards the caller
// as X-User-Id / X-User-Role headers and in the request context.
func (a *Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := a.auth.Resolve(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		r.Header.Set("X-User-Id", strconv.FormatInt(e.ID, 10))
		r.Header.Set("X-User-Role", string(e.Role))
		next(w, r.WithContext(context.WithValue(r.Context(), employeeKey, e)))
	}
}

// RequireAdmin is Require plus the admin role check
func (a *Authenticator) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return a.Require(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-Role") != string(domain.RoleAdmin) {
			forbidden(w)
			return
		}
		next(w, r)
	})
}

// caller is the employee set by Require
func caller(r *http.Request) *domain.Employee {
	e, _ := r.Context().Value(employeeKey).(*domain.Employee)
	return e
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger tags each request with an X-Request-Id and logs its outcome
func RequestLogger(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
			r.Header.Set("X-Request-Id", reqID)
		}
		w.Header().Set("X-Request-Id", reqID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Debug("HTTP request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func isAdmin(r *http.Request) bool {
	e := caller(r)
	return e != nil && e.IsAdmin()
}

func forbidden(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, Fail("admin role required"))
}
