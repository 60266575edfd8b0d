package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"siteclock/internal/domain"
	"siteclock/internal/repository"
)

// EmployeeService manages employee accounts
type EmployeeService struct {
	employees repository.EmployeesRepo
	cache     CacheInvalidator
	now       func() time.Time
	logger    *zap.Logger
}

func NewEmployeeService(employees repository.EmployeesRepo, cache CacheInvalidator, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{employees: employees, cache: cache, now: time.Now, logger: logger}
}

// EmployeeRequest create/update payload. Password is optional on update.
type EmployeeRequest struct {
	Name     string      `json:"name"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
	IsAdmin  bool        `json:"isAdmin"`
}

func (r EmployeeRequest) role() domain.Role {
	if r.Role == "" && r.IsAdmin {
		return domain.RoleAdmin
	}
	return domain.ParseRole(string(r.Role))
}

func (s *EmployeeService) List(ctx context.Context, includeInactive bool) ([]domain.Employee, error) {
	return s.employees.List(ctx, includeInactive)
}

func (s *EmployeeService) Get(ctx context.Context, id int64) (*domain.Employee, error) {
	return s.employees.Get(ctx, id)
}

func (s *EmployeeService) Create(ctx context.Context, req EmployeeRequest) (*domain.Employee, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || strings.TrimSpace(req.Password) == "" {
		return nil, fmt.Errorf("%w: name and password are required", domain.ErrInvalidInput)
	}

	username := normalizeUsername(req.Username)
	if username == "" {
		base := usernameBase(req.Email, name)
		var err error
		if username, err = s.uniqueUsername(ctx, base); err != nil {
			return nil, err
		}
	} else if exists, err := s.employees.UsernameExists(ctx, username); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: username %q already taken", domain.ErrConflict, username)
	}

	e := &domain.Employee{
		Name:         name,
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: HashPassword(req.Password),
		Role:         req.role(),
		IsActive:     true,
	}
	id, err := s.employees.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	e.ID = id
	s.logger.Info("Employee created", zap.Int64("employee_id", id), zap.String("username", username))
	return e, nil
}

func (s *EmployeeService) Update(ctx context.Context, id int64, req EmployeeRequest) (*domain.Employee, error) {
	cur, err := s.employees.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		cur.Name = name
	}
	if username := normalizeUsername(req.Username); username != "" && !strings.EqualFold(username, cur.Username) {
		exists, err := s.employees.UsernameExists(ctx, username)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: username %q already taken", domain.ErrConflict, username)
		}
		cur.Username = username
	}
	cur.Email = strings.TrimSpace(req.Email)
	if req.Role != "" || req.IsAdmin {
		newRole := req.role()
		if cur.IsAdmin() && newRole != domain.RoleAdmin {
			if err := s.ensureOtherAdmin(ctx); err != nil {
				return nil, err
			}
		}
		cur.Role = newRole
	}
	cur.PasswordHash = ""
	if strings.TrimSpace(req.Password) != "" {
		cur.PasswordHash = HashPassword(req.Password)
	}

	if err := s.employees.Update(ctx, cur); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	cur.PasswordHash = ""
	return cur, nil
}

// Delete soft-deletes id on behalf of actorID
func (s *EmployeeService) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return fmt.Errorf("%w: cannot delete your own account", domain.ErrForbidden)
	}
	target, err := s.employees.Get(ctx, id)
	if err != nil {
		return err
	}
	if !target.IsActive {
		return fmt.Errorf("employee %d: %w", id, domain.ErrNotFound)
	}
	if target.IsAdmin() {
		if err := s.ensureOtherAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.employees.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.logger.Info("Employee deactivated", zap.Int64("employee_id", id), zap.Int64("by", actorID))
	return nil
}

// BackfillUsernames assigns usernames to accounts created before usernames existed
func (s *EmployeeService) BackfillUsernames(ctx context.Context) (int, error) {
	all, err := s.employees.List(ctx, true)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range all {
		e := all[i]
		if e.Username != "" || !e.IsActive {
			continue
		}
		username, err := s.uniqueUsername(ctx, usernameBase(e.Email, e.Name))
		if err != nil {
			return n, err
		}
		e.Username = username
		e.PasswordHash = ""
		if err := s.employees.Update(ctx, &e); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		s.logger.Info("Usernames backfilled", zap.Int("count", n))
	}
	return n, nil
}

func (s *EmployeeService) ensureOtherAdmin(ctx context.Context) error {
	n, err := s.employees.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return fmt.Errorf("%w: at least one active administrator is required", domain.ErrForbidden)
	}
	return nil
}

func (s *EmployeeService) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		exists, err := s.employees.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "_" + strconv.Itoa(i)
	}
}

var usernameInvalid = regexp.MustCompile(`[^a-z0-9_]`)

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// usernameBase derives a username from the email local part, or the name
func usernameBase(email, name string) string {
	src := strings.TrimSpace(email)
	if at := strings.Index(src, "@"); at >= 0 {
		src = src[:at]
	}
	if src == "" {
		src = name
	}
	base := usernameInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(src)), "_")
	if base == "" {
		base = "user"
	}
	return base
}
