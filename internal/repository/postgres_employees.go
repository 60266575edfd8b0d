package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"siteclock/internal/domain"
)

// PostgresEmployeesRepo EmployeesRepo backed by PostgreSQL
type PostgresEmployeesRepo struct {
	db *sql.DB
}

func NewPostgresEmployeesRepo(db *sql.DB) *PostgresEmployeesRepo {
	return &PostgresEmployeesRepo{db: db}
}

var _ EmployeesRepo = (*PostgresEmployeesRepo)(nil)

const employeeColumns = `id, name, COALESCE(username, ''), COALESCE(email, ''), password_hash, role, is_active, deleted_at`

func scanEmployee(row interface{ Scan(...any) error }) (*domain.Employee, error) {
	var (
		e         domain.Employee
		role      string
		deletedAt sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Username, &e.Email, &e.PasswordHash, &role, &e.IsActive, &deletedAt); err != nil {
		return nil, err
	}
	e.Role = domain.ParseRole(role)
	if deletedAt.Valid {
		t := deletedAt.Time
		e.DeletedAt = &t
	}
	return &e, nil
}

func (r *PostgresEmployeesRepo) List(ctx context.Context, includeInactive bool) ([]domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	out := []domain.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *PostgresEmployeesRepo) Get(ctx context.Context, id int64) (*domain.Employee, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	e, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("employee %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}

func (r *PostgresEmployeesRepo) GetByLogin(ctx context.Context, login string) (*domain.Employee, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return nil, fmt.Errorf("login: %w", domain.ErrNotFound)
	}
	query := `SELECT ` + employeeColumns + ` FROM employees
		WHERE (LOWER(username) = $1 OR LOWER(email) = $1) AND is_active = TRUE
		ORDER BY id LIMIT 1`
	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, login))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("login %q: %w", login, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get employee by login: %w", err)
	}
	return e, nil
}

func (r *PostgresEmployeesRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM employees WHERE LOWER(username) = LOWER($1))`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

func (r *PostgresEmployeesRepo) Create(ctx context.Context, e *domain.Employee) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO employees (name, username, email, password_hash, role, is_admin, is_active)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, TRUE)
		RETURNING id`,
		e.Name, e.Username, e.Email, e.PasswordHash, string(e.Role), e.IsAdmin(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create employee: %w", err)
	}
	return id, nil
}

func (r *PostgresEmployeesRepo) Update(ctx context.Context, e *domain.Employee) error {
	args := []any{e.ID, e.Name, e.Username, e.Email, string(e.Role), e.IsAdmin()}
	query := `UPDATE employees SET name = $2, username = $3, email = NULLIF($4, ''), role = $5, is_admin = $6`
	if e.PasswordHash != "" {
		query += `, password_hash = $7`
		args = append(args, e.PasswordHash)
	}
	query += ` WHERE id = $1 AND is_active = TRUE`

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	return requireAffected(res, "employee", e.ID)
}

func (r *PostgresEmployeesRepo) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE employees SET is_active = FALSE, deleted_at = $2 WHERE id = $1 AND is_active = TRUE`,
		id, domain.Naive(at),
	)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	return requireAffected(res, "employee", id)
}

func (r *PostgresEmployeesRepo) CountActiveAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employees WHERE role = $1 AND is_active = TRUE`, string(domain.RoleAdmin),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}

func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return nil
}
