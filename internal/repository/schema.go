package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin      BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS work_sites (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		latitude   DOUBLE PRECISION NOT NULL,
		longitude  DOUBLE PRECISION NOT NULL,
		address    TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id           BIGSERIAL PRIMARY KEY,
		employee_id  BIGINT NOT NULL REFERENCES employees (id),
		work_site_id BIGINT REFERENCES work_sites (id) ON DELETE SET NULL,
		timestamp    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		type         TEXT NOT NULL CHECK (type IN ('in', 'out')),
		device_info  TEXT,
		latitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude    DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
}

// columns added after the first release
var migrationStatements = []string{
	`ALTER TABLE employees ADD COLUMN IF NOT EXISTS username TEXT`,
	`ALTER TABLE employees ADD COLUMN IF NOT EXISTS role TEXT NOT NULL DEFAULT 'employee'`,
	`ALTER TABLE employees ADD COLUMN IF NOT EXISTS is_active BOOLEAN NOT NULL DEFAULT TRUE`,
	`ALTER TABLE employees ADD COLUMN IF NOT EXISTS deleted_at TIMESTAMP`,
	`CREATE UNIQUE INDEX IF NOT EXISTS employees_username_key ON employees (LOWER(username))`,
	`ALTER TABLE work_sites ADD COLUMN IF NOT EXISTS is_active BOOLEAN NOT NULL DEFAULT TRUE`,
	`ALTER TABLE work_sites ADD COLUMN IF NOT EXISTS radius_meters DOUBLE PRECISION NOT NULL DEFAULT 100`,
	`ALTER TABLE work_sites ADD COLUMN IF NOT EXISTS description TEXT`,
	`ALTER TABLE attendance_records ADD COLUMN IF NOT EXISTS is_forced BOOLEAN NOT NULL DEFAULT FALSE`,
	`ALTER TABLE attendance_records ADD COLUMN IF NOT EXISTS forced_by_admin_id BIGINT REFERENCES employees (id)`,
	`ALTER TABLE attendance_records ADD COLUMN IF NOT EXISTS notes TEXT`,
	`CREATE INDEX IF NOT EXISTS attendance_employee_ts_idx ON attendance_records (employee_id, timestamp, id)`,
	`CREATE INDEX IF NOT EXISTS attendance_site_ts_idx ON attendance_records (work_site_id, timestamp)`,
}

// EnsureSchema creates the tables and applies additive migrations. Safe to run on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	for _, stmt := range migrationStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}
