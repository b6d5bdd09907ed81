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

// TimeEntryRepository persists the attendance state machine's records.
type TimeEntryRepository struct {
	db *sqlx.DB
}

// NewTimeEntryRepository constructs the repository.
func NewTimeEntryRepository(db *sqlx.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

func (r *TimeEntryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindActive returns the staff member's single active TimeEntry, if any.
// Locks the row FOR UPDATE when called within a transaction so concurrent
// clock-in/clock-out calls for the same staff serialize.
func (r *TimeEntryRepository) FindActive(ctx context.Context, exec sqlx.ExtContext, username string, forUpdate bool) (*models.TimeEntry, error) {
	target := r.exec(exec)
	query := `SELECT id, username, shift_id, clock_in, clock_out, status, auto_completed FROM time_entries WHERE username = $1 AND status = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var entry models.TimeEntry
	if err := sqlx.GetContext(ctx, target, &entry, query, username, models.TimeEntryActive); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByStaffShift returns a TimeEntry for a (staff, shift) pair, used by
// mark_missed's duplicate guard.
func (r *TimeEntryRepository) FindByStaffShift(ctx context.Context, username, shiftID string) (*models.TimeEntry, error) {
	const query = `SELECT id, username, shift_id, clock_in, clock_out, status, auto_completed FROM time_entries WHERE username = $1 AND shift_id = $2`
	var entry models.TimeEntry
	if err := r.db.GetContext(ctx, &entry, query, username, shiftID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create inserts a new time entry.
func (r *TimeEntryRepository) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.TimeEntry) error {
	target := r.exec(exec)
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	const query = `INSERT INTO time_entries (id, username, shift_id, clock_in, clock_out, status, auto_completed) VALUES (:id, :username, :shift_id, :clock_in, :clock_out, :status, :auto_completed)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, entry); err != nil {
		return fmt.Errorf("create time entry: %w", err)
	}
	return nil
}

// Complete transitions an entry to completed with the given clock-out time.
func (r *TimeEntryRepository) Complete(ctx context.Context, exec sqlx.ExtContext, id string, clockOut time.Time, autoCompleted bool) error {
	target := r.exec(exec)
	const query = `UPDATE time_entries SET clock_out = $2, status = $3, auto_completed = $4 WHERE id = $1`
	if _, err := target.ExecContext(ctx, query, id, clockOut, models.TimeEntryCompleted, autoCompleted); err != nil {
		return fmt.Errorf("complete time entry: %w", err)
	}
	return nil
}

// ListStaleActive returns every active entry whose owning shift has already
// ended (or, for shiftless entries, whose clock_in is older than maxSession),
// the candidate set for auto_complete_sweep.
func (r *TimeEntryRepository) ListStaleActive(ctx context.Context, now time.Time, maxSession time.Duration) ([]models.TimeEntry, error) {
	const query = `
SELECT te.id, te.username, te.shift_id, te.clock_in, te.clock_out, te.status, te.auto_completed
FROM time_entries te
LEFT JOIN shifts sh ON sh.id = te.shift_id
WHERE te.status = $1
  AND (
    (te.shift_id IS NOT NULL AND (sh.date + sh.end_time) < $2)
    OR (te.shift_id IS NULL AND te.clock_in < $3)
  )`
	var rows []models.TimeEntry
	if err := r.db.SelectContext(ctx, &rows, query, models.TimeEntryActive, now, now.Add(-maxSession)); err != nil {
		return nil, fmt.Errorf("list stale active time entries: %w", err)
	}
	return rows, nil
}

// ListForUser returns a staff member's history, most recent first.
func (r *TimeEntryRepository) ListForUser(ctx context.Context, username string, limit int) ([]models.TimeEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const query = `SELECT id, username, shift_id, clock_in, clock_out, status, auto_completed FROM time_entries WHERE username = $1 ORDER BY clock_in DESC LIMIT $2`
	var rows []models.TimeEntry
	if err := r.db.SelectContext(ctx, &rows, query, username, limit); err != nil {
		return nil, fmt.Errorf("list time entries for user: %w", err)
	}
	return rows, nil
}

// CompletedInRange returns every completed entry for a staff member whose
// clock_in falls within [from,to), used by stats()'s window aggregation.
func (r *TimeEntryRepository) CompletedInRange(ctx context.Context, username string, from, to time.Time) ([]models.TimeEntry, error) {
	const query = `SELECT id, username, shift_id, clock_in, clock_out, status, auto_completed FROM time_entries WHERE username = $1 AND status = $2 AND clock_in >= $3 AND clock_in < $4`
	var rows []models.TimeEntry
	if err := r.db.SelectContext(ctx, &rows, query, username, models.TimeEntryCompleted, from, to); err != nil {
		return nil, fmt.Errorf("list completed entries in range: %w", err)
	}
	return rows, nil
}

// CountAbsentInRange counts absent entries in a window.
func (r *TimeEntryRepository) CountAbsentInRange(ctx context.Context, username string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM time_entries WHERE username = $1 AND status = $2 AND clock_in >= $3 AND clock_in < $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, username, models.TimeEntryAbsent, from, to); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("count absent entries: %w", err)
	}
	return count, nil
}

// BeginTxx starts a transaction, used by the attendance service to pair a
// TimeEntry write with the HelpDeskAssistant hours ledger update.
func (r *TimeEntryRepository) BeginTxx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

// ListInRange returns entries clocked in within [from,to), optionally
// narrowed to one staff member (username != "") and one schedule's shifts
// (scheduleID != 0). Used by the attendance report export to cover either a
// single volunteer's history or a whole pool's.
func (r *TimeEntryRepository) ListInRange(ctx context.Context, scheduleID int, username string, from, to time.Time) ([]models.TimeEntry, error) {
	query := `
SELECT te.id, te.username, te.shift_id, te.clock_in, te.clock_out, te.status, te.auto_completed
FROM time_entries te
LEFT JOIN shifts sh ON sh.id = te.shift_id
WHERE te.clock_in >= $1 AND te.clock_in < $2`
	args := []interface{}{from, to}
	if username != "" {
		args = append(args, username)
		query += fmt.Sprintf(" AND te.username = $%d", len(args))
	}
	if scheduleID != 0 {
		args = append(args, scheduleID)
		query += fmt.Sprintf(" AND sh.schedule_id = $%d", len(args))
	}
	query += " ORDER BY te.clock_in ASC"
	var rows []models.TimeEntry
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list time entries in range: %w", err)
	}
	return rows, nil
}
