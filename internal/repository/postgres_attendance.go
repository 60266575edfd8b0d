package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"siteclock/internal/domain"
	"siteclock/internal/reconcile"
)

// PostgresAttendanceRepo AttendanceRepo backed by PostgreSQL.
// timestamp is a TIMESTAMP WITHOUT TIME ZONE holding local wall clock in loc.
type PostgresAttendanceRepo struct {
	db  *sql.DB
	loc *time.Location
}

func NewPostgresAttendanceRepo(db *sql.DB, loc *time.Location) *PostgresAttendanceRepo {
	return &PostgresAttendanceRepo{db: db, loc: loc}
}

var _ AttendanceRepo = (*PostgresAttendanceRepo)(nil)

const attendanceSelect = `
	SELECT
		a.id, a.employee_id, a.work_site_id, a.timestamp, a.type,
		COALESCE(a.device_info, ''), a.latitude, a.longitude,
		a.is_forced, a.forced_by_admin_id, COALESCE(a.notes, ''),
		COALESCE(e.name, ''), COALESCE(w.name, '')
	FROM attendance_records a
	LEFT JOIN employees e ON e.id = a.employee_id
	LEFT JOIN work_sites w ON w.id = a.work_site_id`

func (r *PostgresAttendanceRepo) scan(row interface{ Scan(...any) error }) (*domain.AttendanceRecord, error) {
	var (
		rec      domain.AttendanceRecord
		siteID   sql.NullInt64
		forcedBy sql.NullInt64
		typ      string
	)
	err := row.Scan(&rec.ID, &rec.EmployeeID, &siteID, &rec.Timestamp, &typ,
		&rec.DeviceInfo, &rec.Latitude, &rec.Longitude,
		&rec.IsForced, &forcedBy, &rec.Notes,
		&rec.EmployeeName, &rec.WorkSiteName)
	if err != nil {
		return nil, err
	}
	rec.Type = reconcile.EventType(typ)
	rec.Timestamp = domain.Anchor(rec.Timestamp, r.loc)
	if siteID.Valid {
		id := siteID.Int64
		rec.WorkSiteID = &id
	}
	if forcedBy.Valid {
		id := forcedBy.Int64
		rec.ForcedByAdminID = &id
	}
	return &rec, nil
}

func (r *PostgresAttendanceRepo) scanAll(rows *sql.Rows) ([]domain.AttendanceRecord, error) {
	defer rows.Close()
	out := []domain.AttendanceRecord{}
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *PostgresAttendanceRepo) Create(ctx context.Context, rec *domain.AttendanceRecord) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(employee_id, work_site_id, timestamp, type, device_info, latitude, longitude,
			 is_forced, forced_by_admin_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
		RETURNING id`,
		rec.EmployeeID, nullInt64(rec.WorkSiteID), domain.Naive(rec.Timestamp), string(rec.Type),
		rec.DeviceInfo, rec.Latitude, rec.Longitude,
		rec.IsForced, nullInt64(rec.ForcedByAdminID), rec.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create attendance record: %w", err)
	}
	return id, nil
}

// List orders by timestamp with id as tiebreak, ascending unless f.Descending
func (r *PostgresAttendanceRepo) List(ctx context.Context, f domain.AttendanceFilter) ([]domain.AttendanceRecord, error) {
	where := []string{}
	args := []any{}
	argIdx := 1

	if f.EmployeeID > 0 {
		where = append(where, fmt.Sprintf("a.employee_id = $%d", argIdx))
		args = append(args, f.EmployeeID)
		argIdx++
	}
	if f.WorkSiteID > 0 {
		where = append(where, fmt.Sprintf("a.work_site_id = $%d", argIdx))
		args = append(args, f.WorkSiteID)
		argIdx++
	}
	if !f.Start.IsZero() {
		where = append(where, fmt.Sprintf("a.timestamp >= $%d", argIdx))
		args = append(args, domain.Naive(f.Start))
		argIdx++
	}
	if !f.End.IsZero() {
		where = append(where, fmt.Sprintf("a.timestamp <= $%d", argIdx))
		args = append(args, domain.Naive(f.End))
		argIdx++
	}

	query := attendanceSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Descending {
		query += " ORDER BY a.timestamp DESC, a.id DESC"
	} else {
		query += " ORDER BY a.timestamp ASC, a.id ASC"
	}
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return r.scanAll(rows)
}

func (r *PostgresAttendanceRepo) LastForEmployee(ctx context.Context, employeeID int64) (*domain.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx,
		attendanceSelect+` WHERE a.employee_id = $1 ORDER BY a.timestamp DESC, a.id DESC LIMIT 1`, employeeID)
	rec, err := r.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no attendance for employee %d: %w", employeeID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get last attendance: %w", err)
	}
	return rec, nil
}

func (r *PostgresAttendanceRepo) ClockedInAt(ctx context.Context, siteID int64) ([]domain.AttendanceRecord, error) {
	query := `
	WITH last AS (
		SELECT DISTINCT ON (employee_id) id
		FROM attendance_records
		ORDER BY employee_id, timestamp DESC, id DESC
	)` + attendanceSelect + `
	JOIN last ON last.id = a.id
	WHERE a.type = 'in' AND a.work_site_id = $1 AND e.is_active = TRUE
	ORDER BY a.timestamp ASC, a.id ASC`

	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clocked-in employees: %w", err)
	}
	return r.scanAll(rows)
}

func (r *PostgresAttendanceRepo) UpdateTimestamp(ctx context.Context, id int64, ts time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attendance_records SET timestamp = $2 WHERE id = $1`, id, domain.Naive(ts))
	if err != nil {
		return fmt.Errorf("failed to update timestamp: %w", err)
	}
	return requireAffected(res, "attendance record", id)
}

func (r *PostgresAttendanceRepo) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM attendance_records WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete attendance records: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresAttendanceRepo) CountsByEmployee(ctx context.Context) ([]EmployeeCounts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.name,
			COUNT(a.id) FILTER (WHERE a.type = 'in'),
			COUNT(a.id) FILTER (WHERE a.type = 'out')
		FROM employees e
		LEFT JOIN attendance_records a ON a.employee_id = e.id
		GROUP BY e.id, e.name
		ORDER BY e.name, e.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to count attendance: %w", err)
	}
	defer rows.Close()

	out := []EmployeeCounts{}
	for rows.Next() {
		var c EmployeeCounts
		if err := rows.Scan(&c.EmployeeID, &c.EmployeeName, &c.Ins, &c.Outs); err != nil {
			return nil, fmt.Errorf("failed to scan attendance counts: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
