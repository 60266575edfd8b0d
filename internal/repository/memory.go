package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"siteclock/internal/domain"
	"siteclock/internal/reconcile"
)

// memoryDB backs the in-memory repositories used when DB_ENABLED=false.
// The three repos share it so attendance listings can join names.
type memoryDB struct {
	mu sync.RWMutex

	nextID     int64
	employees  map[int64]domain.Employee
	workSites  map[int64]domain.WorkSite
	attendance map[int64]domain.AttendanceRecord
}

func (m *memoryDB) id() int64 {
	m.nextID++
	return m.nextID
}

// MemoryEmployeesRepo in-memory EmployeesRepo
type MemoryEmployeesRepo struct{ db *memoryDB }

// MemoryWorkSitesRepo in-memory WorkSitesRepo
type MemoryWorkSitesRepo struct{ db *memoryDB }

// MemoryAttendanceRepo in-memory AttendanceRepo
type MemoryAttendanceRepo struct{ db *memoryDB }

var (
	_ EmployeesRepo  = (*MemoryEmployeesRepo)(nil)
	_ WorkSitesRepo  = (*MemoryWorkSitesRepo)(nil)
	_ AttendanceRepo = (*MemoryAttendanceRepo)(nil)
)

// NewMemoryRepos builds the three repositories over one shared store
func NewMemoryRepos() (*MemoryEmployeesRepo, *MemoryWorkSitesRepo, *MemoryAttendanceRepo) {
	db := &memoryDB{
		employees:  map[int64]domain.Employee{},
		workSites:  map[int64]domain.WorkSite{},
		attendance: map[int64]domain.AttendanceRecord{},
	}
	return &MemoryEmployeesRepo{db: db}, &MemoryWorkSitesRepo{db: db}, &MemoryAttendanceRepo{db: db}
}

// ---- employees ----

func (r *MemoryEmployeesRepo) List(_ context.Context, includeInactive bool) ([]domain.Employee, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []domain.Employee{}
	for _, e := range r.db.employees {
		if e.IsActive || includeInactive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryEmployeesRepo) Get(_ context.Context, id int64) (*domain.Employee, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	e, ok := r.db.employees[id]
	if !ok {
		return nil, fmt.Errorf("employee %d: %w", id, domain.ErrNotFound)
	}
	return &e, nil
}

func (r *MemoryEmployeesRepo) GetByLogin(_ context.Context, login string) (*domain.Employee, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var found *domain.Employee
	for _, e := range r.db.employees {
		if !e.IsActive || login == "" {
			continue
		}
		if strings.ToLower(e.Username) == login || strings.ToLower(e.Email) == login {
			if found == nil || e.ID < found.ID {
				found = &e
			}
		}
	}
	if found == nil {
		return nil, fmt.Errorf("login %q: %w", login, domain.ErrNotFound)
	}
	return found, nil
}

func (r *MemoryEmployeesRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, e := range r.db.employees {
		if strings.EqualFold(e.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryEmployeesRepo) Create(_ context.Context, e *domain.Employee) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, other := range r.db.employees {
		if e.Email != "" && strings.EqualFold(other.Email, e.Email) {
			return 0, fmt.Errorf("email %q: %w", e.Email, domain.ErrConflict)
		}
	}
	stored := *e
	stored.ID = r.db.id()
	stored.IsActive = true
	stored.DeletedAt = nil
	r.db.employees[stored.ID] = stored
	return stored.ID, nil
}

func (r *MemoryEmployeesRepo) Update(_ context.Context, e *domain.Employee) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.employees[e.ID]
	if !ok || !cur.IsActive {
		return fmt.Errorf("employee %d: %w", e.ID, domain.ErrNotFound)
	}
	cur.Name = e.Name
	cur.Username = e.Username
	cur.Email = e.Email
	cur.Role = e.Role
	if e.PasswordHash != "" {
		cur.PasswordHash = e.PasswordHash
	}
	r.db.employees[e.ID] = cur
	return nil
}

func (r *MemoryEmployeesRepo) SoftDelete(_ context.Context, id int64, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.employees[id]
	if !ok || !cur.IsActive {
		return fmt.Errorf("employee %d: %w", id, domain.ErrNotFound)
	}
	cur.IsActive = false
	cur.DeletedAt = &at
	r.db.employees[id] = cur
	return nil
}

func (r *MemoryEmployeesRepo) CountActiveAdmins(_ context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	n := 0
	for _, e := range r.db.employees {
		if e.IsActive && e.IsAdmin() {
			n++
		}
	}
	return n, nil
}

// ---- work sites ----

func (r *MemoryWorkSitesRepo) List(_ context.Context, activeOnly bool) ([]domain.WorkSite, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []domain.WorkSite{}
	for _, w := range r.db.workSites {
		if w.IsActive || !activeOnly {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryWorkSitesRepo) Get(_ context.Context, id int64) (*domain.WorkSite, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	w, ok := r.db.workSites[id]
	if !ok {
		return nil, fmt.Errorf("work site %d: %w", id, domain.ErrNotFound)
	}
	return &w, nil
}

func (r *MemoryWorkSitesRepo) Create(_ context.Context, w *domain.WorkSite) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored := *w
	stored.ID = r.db.id()
	r.db.workSites[stored.ID] = stored
	return stored.ID, nil
}

func (r *MemoryWorkSitesRepo) Update(_ context.Context, w *domain.WorkSite) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.workSites[w.ID]
	if !ok {
		return fmt.Errorf("work site %d: %w", w.ID, domain.ErrNotFound)
	}
	updated := *w
	updated.CreatedAt = cur.CreatedAt
	r.db.workSites[w.ID] = updated
	return nil
}

func (r *MemoryWorkSitesRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.workSites[id]; !ok {
		return fmt.Errorf("work site %d: %w", id, domain.ErrNotFound)
	}
	delete(r.db.workSites, id)
	for recID, rec := range r.db.attendance {
		if rec.WorkSiteID != nil && *rec.WorkSiteID == id {
			rec.WorkSiteID = nil
			r.db.attendance[recID] = rec
		}
	}
	return nil
}

// ---- attendance ----

// joined fills names; caller holds the lock
func (r *MemoryAttendanceRepo) joined(rec domain.AttendanceRecord) domain.AttendanceRecord {
	rec.EmployeeName = r.db.employees[rec.EmployeeID].Name
	rec.WorkSiteName = ""
	if rec.WorkSiteID != nil {
		rec.WorkSiteName = r.db.workSites[*rec.WorkSiteID].Name
	}
	return rec
}

func (r *MemoryAttendanceRepo) sorted(match func(domain.AttendanceRecord) bool, desc bool) []domain.AttendanceRecord {
	out := []domain.AttendanceRecord{}
	for _, rec := range r.db.attendance {
		if match(rec) {
			out = append(out, r.joined(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})
	return out
}

func (r *MemoryAttendanceRepo) Create(_ context.Context, rec *domain.AttendanceRecord) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.employees[rec.EmployeeID]; !ok {
		return 0, fmt.Errorf("employee %d: %w", rec.EmployeeID, domain.ErrNotFound)
	}
	stored := *rec
	stored.ID = r.db.id()
	stored.EmployeeName, stored.WorkSiteName = "", ""
	r.db.attendance[stored.ID] = stored
	return stored.ID, nil
}

func (r *MemoryAttendanceRepo) List(_ context.Context, f domain.AttendanceFilter) ([]domain.AttendanceRecord, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := r.sorted(func(rec domain.AttendanceRecord) bool {
		if f.EmployeeID > 0 && rec.EmployeeID != f.EmployeeID {
			return false
		}
		if f.WorkSiteID > 0 && (rec.WorkSiteID == nil || *rec.WorkSiteID != f.WorkSiteID) {
			return false
		}
		if !f.Start.IsZero() && rec.Timestamp.Before(f.Start) {
			return false
		}
		if !f.End.IsZero() && rec.Timestamp.After(f.End) {
			return false
		}
		return true
	}, f.Descending)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryAttendanceRepo) LastForEmployee(_ context.Context, employeeID int64) (*domain.AttendanceRecord, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	recs := r.sorted(func(rec domain.AttendanceRecord) bool { return rec.EmployeeID == employeeID }, true)
	if len(recs) == 0 {
		return nil, fmt.Errorf("no attendance for employee %d: %w", employeeID, domain.ErrNotFound)
	}
	return &recs[0], nil
}

func (r *MemoryAttendanceRepo) ClockedInAt(_ context.Context, siteID int64) ([]domain.AttendanceRecord, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	last := map[int64]domain.AttendanceRecord{}
	for _, rec := range r.sorted(func(domain.AttendanceRecord) bool { return true }, false) {
		last[rec.EmployeeID] = rec
	}
	out := []domain.AttendanceRecord{}
	for empID, rec := range last {
		if !r.db.employees[empID].IsActive || rec.Type != reconcile.In {
			continue
		}
		if rec.WorkSiteID != nil && *rec.WorkSiteID == siteID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryAttendanceRepo) UpdateTimestamp(_ context.Context, id int64, ts time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rec, ok := r.db.attendance[id]
	if !ok {
		return fmt.Errorf("attendance record %d: %w", id, domain.ErrNotFound)
	}
	rec.Timestamp = ts
	r.db.attendance[id] = rec
	return nil
}

func (r *MemoryAttendanceRepo) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := r.db.attendance[id]; ok {
			delete(r.db.attendance, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryAttendanceRepo) CountsByEmployee(_ context.Context) ([]EmployeeCounts, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	byID := map[int64]*EmployeeCounts{}
	for id, e := range r.db.employees {
		byID[id] = &EmployeeCounts{EmployeeID: id, EmployeeName: e.Name}
	}
	for _, rec := range r.db.attendance {
		c, ok := byID[rec.EmployeeID]
		if !ok {
			continue
		}
		if rec.Type == reconcile.In {
			c.Ins++
		} else {
			c.Outs++
		}
	}
	out := make([]EmployeeCounts, 0, len(byID))
	for _, c := range byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeName != out[j].EmployeeName {
			return out[i].EmployeeName < out[j].EmployeeName
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}
