package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-assist/rostering-api/internal/models"
)

// AvailabilityRepository persists the weekly recurring windows the
// availability resolver and scheduler both read from. start < end is
// validated by the service layer before Create/Update reach here.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListForUser returns every availability row for a staff member, across all
// days.
func (r *AvailabilityRepository) ListForUser(ctx context.Context, username string) ([]models.Availability, error) {
	const query = `SELECT id, username, day_of_week, start_time, end_time, created_at FROM availability WHERE username = $1 ORDER BY day_of_week ASC, start_time ASC`
	var rows []models.Availability
	if err := r.db.SelectContext(ctx, &rows, query, username); err != nil {
		return nil, fmt.Errorf("list availability for user: %w", err)
	}
	return rows, nil
}

// ListForDay returns every availability row on a given weekday, across all
// staff, used by list_available to find candidate staff for an hour.
func (r *AvailabilityRepository) ListForDay(ctx context.Context, day models.DayOfWeek) ([]models.Availability, error) {
	const query = `SELECT id, username, day_of_week, start_time, end_time, created_at FROM availability WHERE day_of_week = $1`
	var rows []models.Availability
	if err := r.db.SelectContext(ctx, &rows, query, day); err != nil {
		return nil, fmt.Errorf("list availability for day: %w", err)
	}
	return rows, nil
}

// ListAll loads the full availability table, used by the scheduler to build
// the a[i,j] matrix in one round-trip rather than per-staff queries.
func (r *AvailabilityRepository) ListAll(ctx context.Context) ([]models.Availability, error) {
	const query = `SELECT id, username, day_of_week, start_time, end_time, created_at FROM availability`
	var rows []models.Availability
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list all availability: %w", err)
	}
	return rows, nil
}

// Create inserts a new availability window.
func (r *AvailabilityRepository) Create(ctx context.Context, a *models.Availability) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	const query = `INSERT INTO availability (id, username, day_of_week, start_time, end_time, created_at) VALUES (:id, :username, :day_of_week, :start_time, :end_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create availability: %w", err)
	}
	return nil
}

// Delete removes one availability row by id, scoped to the owning staff
// member so a volunteer cannot delete another's window.
func (r *AvailabilityRepository) Delete(ctx context.Context, username, id string) error {
	const query = `DELETE FROM availability WHERE id = $1 AND username = $2`
	if _, err := r.db.ExecContext(ctx, query, id, username); err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}
