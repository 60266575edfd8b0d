package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"siteclock/internal/domain"
)

func TestHashPassword_TrimsInput(t *testing.T) {
	assert.Equal(t, HashPassword("admin123"), HashPassword("  admin123\n"))
	assert.Len(t, HashPassword("x"), 64)
	assert.NotEqual(t, HashPassword("a"), HashPassword("b"))
}

func TestAuthService_LoginAndResolve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	emp := env.addEmployee(t, "mario", domain.RoleEmployee)
	auth := NewAuthService(env.employees, env.kv, time.Hour, zap.NewNop())

	resp, err := auth.Login(ctx, LoginRequest{Login: " MARIO ", Password: "secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, emp.ID, resp.Employee.ID)

	got, err := auth.Resolve(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "mario", got.Name)

	require.NoError(t, auth.Logout(ctx, resp.Token))
	_, err = auth.Resolve(ctx, resp.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_LoginRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addEmployee(t, "mario", domain.RoleEmployee)
	auth := NewAuthService(env.employees, env.kv, time.Hour, zap.NewNop())

	_, err := auth.Login(ctx, LoginRequest{Login: "mario", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = auth.Login(ctx, LoginRequest{Login: "nobody", Password: "secret"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = auth.Login(ctx, LoginRequest{Password: "secret"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuthService_ResolveDeactivatedEmployee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	emp := env.addEmployee(t, "luigi", domain.RoleEmployee)
	auth := NewAuthService(env.employees, env.kv, time.Hour, zap.NewNop())

	resp, err := auth.Login(ctx, LoginRequest{Login: "luigi", Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, env.employees.SoftDelete(ctx, emp.ID, time.Now()))

	_, err = auth.Resolve(ctx, resp.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = auth.Resolve(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_SeedAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := NewAuthService(env.employees, env.kv, time.Hour, zap.NewNop())

	require.NoError(t, auth.SeedAdmin(ctx, "Admin", "admin@example.com", "admin123"))
	require.NoError(t, auth.SeedAdmin(ctx, "admin", "admin@example.com", "admin123"))

	n, err := env.employees.CountActiveAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	resp, err := auth.Login(ctx, LoginRequest{Email: "admin@example.com", Password: "admin123"})
	require.NoError(t, err)
	assert.True(t, resp.Employee.IsAdmin())
	assert.Equal(t, "admin", resp.Employee.Username)
}
