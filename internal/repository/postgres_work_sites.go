package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"siteclock/internal/domain"
)

// PostgresWorkSitesRepo WorkSitesRepo backed by PostgreSQL
type PostgresWorkSitesRepo struct {
	db  *sql.DB
	loc *time.Location
}

func NewPostgresWorkSitesRepo(db *sql.DB, loc *time.Location) *PostgresWorkSitesRepo {
	return &PostgresWorkSitesRepo{db: db, loc: loc}
}

var _ WorkSitesRepo = (*PostgresWorkSitesRepo)(nil)

const workSiteColumns = `id, name, latitude, longitude, address, COALESCE(description, ''), is_active, radius_meters, created_at`

func (r *PostgresWorkSitesRepo) scan(row interface{ Scan(...any) error }) (*domain.WorkSite, error) {
	var w domain.WorkSite
	err := row.Scan(&w.ID, &w.Name, &w.Latitude, &w.Longitude, &w.Address, &w.Description,
		&w.IsActive, &w.RadiusMeters, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	w.CreatedAt = domain.Anchor(w.CreatedAt, r.loc)
	return &w, nil
}

func (r *PostgresWorkSitesRepo) List(ctx context.Context, activeOnly bool) ([]domain.WorkSite, error) {
	query := `SELECT ` + workSiteColumns + ` FROM work_sites`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list work sites: %w", err)
	}
	defer rows.Close()

	out := []domain.WorkSite{}
	for rows.Next() {
		w, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work site: %w", err)
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (r *PostgresWorkSitesRepo) Get(ctx context.Context, id int64) (*domain.WorkSite, error) {
	w, err := r.scan(r.db.QueryRowContext(ctx, `SELECT `+workSiteColumns+` FROM work_sites WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("work site %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get work site: %w", err)
	}
	return w, nil
}

func (r *PostgresWorkSitesRepo) Create(ctx context.Context, w *domain.WorkSite) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO work_sites (name, latitude, longitude, address, description, is_active, radius_meters, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		RETURNING id`,
		w.Name, w.Latitude, w.Longitude, w.Address, w.Description, w.IsActive, w.RadiusMeters,
		domain.Naive(w.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create work site: %w", err)
	}
	return id, nil
}

func (r *PostgresWorkSitesRepo) Update(ctx context.Context, w *domain.WorkSite) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE work_sites
		SET name = $2, latitude = $3, longitude = $4, address = $5, description = NULLIF($6, ''),
			is_active = $7, radius_meters = $8
		WHERE id = $1`,
		w.ID, w.Name, w.Latitude, w.Longitude, w.Address, w.Description, w.IsActive, w.RadiusMeters,
	)
	if err != nil {
		return fmt.Errorf("failed to update work site: %w", err)
	}
	return requireAffected(res, "work site", w.ID)
}

// Delete removes the site; its attendance records keep a NULL site
func (r *PostgresWorkSitesRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM work_sites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete work site: %w", err)
	}
	return requireAffected(res, "work site", id)
}
