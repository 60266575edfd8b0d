package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"siteclock/internal/domain"
	"siteclock/internal/repository"
	"siteclock/internal/store"
)

const sessionKeyPrefix = "session:"

// AuthService logs employees in and resolves session tokens
type AuthService struct {
	employees repository.EmployeesRepo
	kv        store.KV
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewAuthService(employees repository.EmployeesRepo, kv store.KV, ttl time.Duration, logger *zap.Logger) *AuthService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{employees: employees, kv: kv, ttl: ttl, now: time.Now, logger: logger}
}

// LoginRequest username or email plus password
type LoginRequest struct {
	Login    string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// LoginResponse session token and the logged-in employee
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Employee  domain.Employee `json:"employee"`
}

// HashPassword SHA256(trimmed password), hex encoded
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(password)))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	login := req.Login
	if strings.TrimSpace(login) == "" {
		login = req.Email
	}
	if strings.TrimSpace(login) == "" || strings.TrimSpace(req.Password) == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	e, err := s.employees.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("Login rejected: unknown account", zap.String("login", login))
			return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if e.PasswordHash != HashPassword(req.Password) {
		s.logger.Info("Login rejected: wrong password", zap.Int64("employee_id", e.ID))
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	token := uuid.NewString()
	if err := s.kv.Set(ctx, sessionKeyPrefix+token, strconv.FormatInt(e.ID, 10), s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	s.logger.Info("Employee logged in", zap.Int64("employee_id", e.ID), zap.String("role", string(e.Role)))

	return &LoginResponse{Token: token, ExpiresAt: s.now().Add(s.ttl), Employee: *e}, nil
}

// Resolve maps a session token to its active employee
func (s *AuthService) Resolve(ctx context.Context, token string) (*domain.Employee, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	val, err := s.kv.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, fmt.Errorf("%w: session expired", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt session", domain.ErrUnauthorized)
	}
	e, err := s.employees.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: account removed", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if !e.IsActive {
		return nil, fmt.Errorf("%w: account disabled", domain.ErrUnauthorized)
	}
	return e, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.kv.Delete(ctx, sessionKeyPrefix+strings.TrimSpace(token))
}

// SeedAdmin creates the default administrator when no active admin exists
func (s *AuthService) SeedAdmin(ctx context.Context, username, email, password string) error {
	n, err := s.employees.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	id, err := s.employees.Create(ctx, &domain.Employee{
		Name:         "Administrator",
		Username:     strings.ToLower(strings.TrimSpace(username)),
		Email:        strings.TrimSpace(email),
		PasswordHash: HashPassword(password),
		Role:         domain.RoleAdmin,
		IsActive:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	s.logger.Warn("Seeded default administrator, change its password", zap.Int64("employee_id", id), zap.String("username", username))
	return nil
}
