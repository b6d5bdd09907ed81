package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-assist/rostering-api/internal/models"
)

// ScheduleRepository provides persistence for the Schedule/Shift/
// ShiftCourseDemand/Allocation cluster. A schedule addressed by one of the
// two fixed primary ids (models.PrimaryScheduleHelpDesk/Lab) owns every
// shift and allocation in a generated date range.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// EnsureExists creates the fixed-id schedule row for kind if it does not
// already exist, and widens [start_date,end_date] to cover the requested
// range. Returns the current schedule row.
func (r *ScheduleRepository) EnsureExists(ctx context.Context, exec sqlx.ExtContext, kind models.ScheduleKind, start, end time.Time) (*models.Schedule, error) {
	target := r.exec(exec)
	id := models.FixedScheduleID(kind)

	const upsert = `
INSERT INTO schedules (id, kind, start_date, end_date, generated_at, is_published)
VALUES ($1, $2, $3, $4, $5, false)
ON CONFLICT (id) DO UPDATE SET
    start_date = LEAST(schedules.start_date, EXCLUDED.start_date),
    end_date = GREATEST(schedules.end_date, EXCLUDED.end_date),
    generated_at = EXCLUDED.generated_at
RETURNING id, kind, start_date, end_date, generated_at, is_published`

	var sched models.Schedule
	if err := sqlx.GetContext(ctx, target, &sched, upsert, id, kind, start, end, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("ensure schedule exists: %w", err)
	}
	return &sched, nil
}

// FindByID loads a schedule by its fixed id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id int) (*models.Schedule, error) {
	const query = `SELECT id, kind, start_date, end_date, generated_at, is_published FROM schedules WHERE id = $1`
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// SetPublished flips is_published; returns the previous value so callers can
// detect the idempotent "already published" case.
func (r *ScheduleRepository) SetPublished(ctx context.Context, id int, published bool) (bool, error) {
	var previous bool
	const query = `UPDATE schedules SET is_published = $2 WHERE id = $1 RETURNING (SELECT is_published FROM schedules WHERE id = $1)`
	if err := r.db.GetContext(ctx, &previous, query, id, published); err != nil {
		return false, fmt.Errorf("set published: %w", err)
	}
	return previous, nil
}

// ClearRange deletes all Shifts (and cascades to Allocations and
// ShiftCourseDemand) belonging to scheduleID whose date falls in [start,end].
func (r *ScheduleRepository) ClearRange(ctx context.Context, exec sqlx.ExtContext, scheduleID int, start, end time.Time) error {
	target := r.exec(exec)
	const query = `DELETE FROM shifts WHERE schedule_id = $1 AND date BETWEEN $2 AND $3`
	if _, err := target.ExecContext(ctx, query, scheduleID, start, end); err != nil {
		return fmt.Errorf("clear schedule range: %w", err)
	}
	return nil
}

// InsertShift stores one shift row.
func (r *ScheduleRepository) InsertShift(ctx context.Context, exec sqlx.ExtContext, shift *models.Shift) error {
	target := r.exec(exec)
	if !shift.StartTime.Before(shift.EndTime) {
		return fmt.Errorf("insert shift: start must be before end")
	}
	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	const query = `INSERT INTO shifts (id, schedule_id, date, start_time, end_time) VALUES (:id, :schedule_id, :date, :start_time, :end_time)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, shift); err != nil {
		return fmt.Errorf("insert shift: %w", err)
	}
	return nil
}

// InsertShiftCourseDemand attaches a coverage goal to a shift.
func (r *ScheduleRepository) InsertShiftCourseDemand(ctx context.Context, exec sqlx.ExtContext, demand *models.ShiftCourseDemand) error {
	target := r.exec(exec)
	const query = `INSERT INTO shift_course_demands (shift_id, course_code, tutors_required, weight) VALUES (:shift_id, :course_code, :tutors_required, :weight)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, demand); err != nil {
		return fmt.Errorf("insert shift course demand: %w", err)
	}
	return nil
}

// InsertAllocation stores one allocation row. The unique index on
// (shift_id, username) is the second line of defense for the allocation
// uniqueness invariant; callers should lock the parent shift row first.
func (r *ScheduleRepository) InsertAllocation(ctx context.Context, exec sqlx.ExtContext, alloc *models.Allocation) error {
	target := r.exec(exec)
	if alloc.ID == "" {
		alloc.ID = uuid.NewString()
	}
	if alloc.CreatedAt.IsZero() {
		alloc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO allocations (id, schedule_id, shift_id, username, created_at) VALUES (:id, :schedule_id, :shift_id, :username, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, alloc); err != nil {
		return fmt.Errorf("insert allocation: %w", err)
	}
	return nil
}

// LockShift acquires a row-level lock on a shift for the duration of the
// caller's transaction, serializing concurrent allocation writes against it.
func (r *ScheduleRepository) LockShift(ctx context.Context, tx *sqlx.Tx, shiftID string) error {
	const query = `SELECT id FROM shifts WHERE id = $1 FOR UPDATE`
	var id string
	if err := tx.GetContext(ctx, &id, query, shiftID); err != nil {
		return fmt.Errorf("lock shift: %w", err)
	}
	return nil
}

// ExistsForShiftStaff reports whether an allocation already exists for the
// (shift, staff) pair.
func (r *ScheduleRepository) ExistsForShiftStaff(ctx context.Context, exec sqlx.ExtContext, shiftID, username string) (bool, error) {
	target := r.exec(exec)
	const query = `SELECT 1 FROM allocations WHERE shift_id = $1 AND username = $2 LIMIT 1`
	var found int
	if err := sqlx.GetContext(ctx, target, &found, query, shiftID, username); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check allocation exists: %w", err)
	}
	return true, nil
}

// DeleteAllocation removes exactly one allocation by id.
func (r *ScheduleRepository) DeleteAllocation(ctx context.Context, exec sqlx.ExtContext, id string) error {
	target := r.exec(exec)
	result, err := target.ExecContext(ctx, `DELETE FROM allocations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("allocation rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteAllocationByShiftStaff removes the allocation for a (shift, staff)
// pair, used by remove_allocation when the caller has a shift id rather
// than the allocation id.
func (r *ScheduleRepository) DeleteAllocationByShiftStaff(ctx context.Context, exec sqlx.ExtContext, shiftID, username string) error {
	target := r.exec(exec)
	result, err := target.ExecContext(ctx, `DELETE FROM allocations WHERE shift_id = $1 AND username = $2`, shiftID, username)
	if err != nil {
		return fmt.Errorf("delete allocation by shift/staff: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("allocation rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClearAllocationsForShift removes every allocation on one shift, used by
// save_assignments to replace a cell's roster wholesale.
func (r *ScheduleRepository) ClearAllocationsForShift(ctx context.Context, exec sqlx.ExtContext, shiftID string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM allocations WHERE shift_id = $1`, shiftID); err != nil {
		return fmt.Errorf("clear allocations for shift: %w", err)
	}
	return nil
}

// FindShiftByDayTime resolves the shift for a (schedule, date, start_time)
// tuple, used by the editor to map a (day,time) cell onto its shift row.
func (r *ScheduleRepository) FindShiftByDayTime(ctx context.Context, exec sqlx.ExtContext, scheduleID int, date time.Time, start models.TimeOfDay) (*models.Shift, error) {
	target := r.exec(exec)
	const query = `SELECT id, schedule_id, date, start_time, end_time FROM shifts WHERE schedule_id = $1 AND date = $2 AND start_time = $3`
	var shift models.Shift
	if err := sqlx.GetContext(ctx, target, &shift, query, scheduleID, date, start); err != nil {
		return nil, err
	}
	return &shift, nil
}

// FindShiftByID loads a shift.
func (r *ScheduleRepository) FindShiftByID(ctx context.Context, id string) (*models.Shift, error) {
	const query = `SELECT id, schedule_id, date, start_time, end_time FROM shifts WHERE id = $1`
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, err
	}
	return &shift, nil
}

// Grid returns every shift in [start,end] for a schedule, ordered by date
// and start time for building the view the dashboard and the grid
// endpoint both render. Allocations are not included; callers load them
// with AllocationsForShifts.
func (r *ScheduleRepository) Grid(ctx context.Context, scheduleID int, start, end time.Time) ([]models.Shift, error) {
	const query = `SELECT id, schedule_id, date, start_time, end_time FROM shifts WHERE schedule_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date ASC, start_time ASC`
	var shifts []models.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, scheduleID, start, end); err != nil {
		return nil, fmt.Errorf("load schedule grid: %w", err)
	}
	return shifts, nil
}

// AllocationsForShifts returns every allocation, enriched with staff name,
// for the given shift ids.
func (r *ScheduleRepository) AllocationsForShifts(ctx context.Context, shiftIDs []string) ([]models.AllocationDetail, error) {
	if len(shiftIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
SELECT a.id, a.schedule_id, a.shift_id, a.username, a.created_at,
       s.name AS staff_name, sh.date, sh.start_time, sh.end_time
FROM allocations a
JOIN students s ON s.username = a.username
JOIN shifts sh ON sh.id = a.shift_id
WHERE a.shift_id IN (?)
ORDER BY sh.date ASC, sh.start_time ASC`, shiftIDs)
	if err != nil {
		return nil, fmt.Errorf("build allocations query: %w", err)
	}
	query = r.db.Rebind(query)
	var details []models.AllocationDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("load allocations for shifts: %w", err)
	}
	return details, nil
}

// AllocationsForStaff returns every allocation for a staff member within a
// date range on the given schedule, used by the volunteer dashboard.
func (r *ScheduleRepository) AllocationsForStaff(ctx context.Context, scheduleID int, username string, start, end time.Time) ([]models.AllocationDetail, error) {
	const query = `
SELECT a.id, a.schedule_id, a.shift_id, a.username, a.created_at,
       $2 AS staff_name, sh.date, sh.start_time, sh.end_time
FROM allocations a
JOIN shifts sh ON sh.id = a.shift_id
WHERE a.schedule_id = $1 AND a.username = $2 AND sh.date BETWEEN $3 AND $4
ORDER BY sh.date ASC, sh.start_time ASC`
	var details []models.AllocationDetail
	if err := r.db.SelectContext(ctx, &details, query, scheduleID, username, start, end); err != nil {
		return nil, fmt.Errorf("load allocations for staff: %w", err)
	}
	return details, nil
}

// DistinctAllocatedStaff returns the set of usernames allocated anywhere on
// scheduleID, used by publish() to fan out one notification per staff.
func (r *ScheduleRepository) DistinctAllocatedStaff(ctx context.Context, scheduleID int) ([]string, error) {
	const query = `SELECT DISTINCT username FROM allocations WHERE schedule_id = $1`
	var usernames []string
	if err := r.db.SelectContext(ctx, &usernames, query, scheduleID); err != nil {
		return nil, fmt.Errorf("load distinct allocated staff: %w", err)
	}
	return usernames, nil
}

// CountAllocationsByShift returns the number of allocations per shift id.
func (r *ScheduleRepository) CountAllocationsByShift(ctx context.Context, shiftIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(shiftIDs))
	if len(shiftIDs) == 0 {
		return counts, nil
	}
	query, args, err := sqlx.In(`SELECT shift_id, COUNT(*) AS cnt FROM allocations WHERE shift_id IN (?) GROUP BY shift_id`, shiftIDs)
	if err != nil {
		return nil, fmt.Errorf("build allocation count query: %w", err)
	}
	query = r.db.Rebind(query)
	rows := []struct {
		ShiftID string `db:"shift_id"`
		Count   int    `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count allocations by shift: %w", err)
	}
	for _, row := range rows {
		counts[row.ShiftID] = row.Count
	}
	return counts, nil
}

// BeginTxx exposes the underlying sqlx.DB's transaction starter so services
// can compose multi-repository writes atomically.
func (r *ScheduleRepository) BeginTxx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}
