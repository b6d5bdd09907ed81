package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campus-assist/rostering-api/internal/models"
)

// AssistantRepository persists the HelpDeskAssistant and LabAssistant
// per-kind detail rows joined to Student by username. The two pools are
// modeled as disjoint tables, matching spec.md's stated assumption that
// scheduling never mixes them.
type AssistantRepository struct {
	db *sqlx.DB
}

// NewAssistantRepository constructs the repository.
func NewAssistantRepository(db *sqlx.DB) *AssistantRepository {
	return &AssistantRepository{db: db}
}

func (r *AssistantRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListActiveHelpDesk returns every active help-desk assistant, eligible for
// scheduling.
func (r *AssistantRepository) ListActiveHelpDesk(ctx context.Context) ([]models.HelpDeskAssistant, error) {
	const query = `SELECT username, hourly_rate, active, hours_worked, hours_minimum FROM help_desk_assistants WHERE active = true`
	var rows []models.HelpDeskAssistant
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list active help desk assistants: %w", err)
	}
	return rows, nil
}

// ListActiveLab returns every active lab assistant.
func (r *AssistantRepository) ListActiveLab(ctx context.Context) ([]models.LabAssistant, error) {
	const query = `SELECT username, active, experienced FROM lab_assistants WHERE active = true`
	var rows []models.LabAssistant
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list active lab assistants: %w", err)
	}
	return rows, nil
}

// FindHelpDesk returns a help-desk assistant by username.
func (r *AssistantRepository) FindHelpDesk(ctx context.Context, username string) (*models.HelpDeskAssistant, error) {
	const query = `SELECT username, hourly_rate, active, hours_worked, hours_minimum FROM help_desk_assistants WHERE username = $1`
	var a models.HelpDeskAssistant
	if err := r.db.GetContext(ctx, &a, query, username); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindLab returns a lab assistant by username.
func (r *AssistantRepository) FindLab(ctx context.Context, username string) (*models.LabAssistant, error) {
	const query = `SELECT username, active, experienced FROM lab_assistants WHERE username = $1`
	var a models.LabAssistant
	if err := r.db.GetContext(ctx, &a, query, username); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateHelpDesk inserts a help-desk assistant row, defaulting hours_minimum.
func (r *AssistantRepository) CreateHelpDesk(ctx context.Context, a *models.HelpDeskAssistant) error {
	if a.HoursMinimum == 0 {
		a.HoursMinimum = models.DefaultHoursMinimum
	}
	const query = `INSERT INTO help_desk_assistants (username, hourly_rate, active, hours_worked, hours_minimum) VALUES (:username, :hourly_rate, :active, :hours_worked, :hours_minimum)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create help desk assistant: %w", err)
	}
	return nil
}

// CreateLab inserts a lab assistant row.
func (r *AssistantRepository) CreateLab(ctx context.Context, a *models.LabAssistant) error {
	const query = `INSERT INTO lab_assistants (username, active, experienced) VALUES (:username, :active, :experienced)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create lab assistant: %w", err)
	}
	return nil
}

// IncrementHoursWorked adds delta hours to a help-desk assistant's ledger,
// within the caller's transaction so it lands atomically with the
// TimeEntry completion that produced it.
func (r *AssistantRepository) IncrementHoursWorked(ctx context.Context, exec sqlx.ExtContext, username string, delta float64) error {
	target := r.exec(exec)
	const query = `UPDATE help_desk_assistants SET hours_worked = hours_worked + $2 WHERE username = $1`
	if _, err := target.ExecContext(ctx, query, username, delta); err != nil {
		return fmt.Errorf("increment hours worked: %w", err)
	}
	return nil
}

// SetActive toggles the active flag for a help-desk or lab assistant.
func (r *AssistantRepository) SetActive(ctx context.Context, kind models.StaffKind, username string, active bool) error {
	table := "help_desk_assistants"
	if kind == models.StaffKindLab {
		table = "lab_assistants"
	}
	query := fmt.Sprintf(`UPDATE %s SET active = $2 WHERE username = $1`, table)
	if _, err := r.db.ExecContext(ctx, query, username, active); err != nil {
		return fmt.Errorf("set assistant active: %w", err)
	}
	return nil
}
