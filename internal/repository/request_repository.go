package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-assist/rostering-api/internal/models"
)

// RequestRepository persists shift-change requests. A Request references an
// existing Allocation via (username, shift_id); approval does not itself
// reallocate the shift, that is a separate schedule editor call.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request in PENDING status.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.RequestPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO requests
	(id, username, shift_id, reason, replacement, status, reviewed_by, note, created_at, reviewed_at)
	VALUES (:id, :username, :shift_id, :reason, :replacement, :status, :reviewed_by, :note, :created_at, :reviewed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	const query = `SELECT id, username, shift_id, reason, replacement, status, reviewed_by, note, created_at, reviewed_at
	FROM requests WHERE id = $1`
	var req models.Request
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter, most recent first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	base := "FROM requests WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Username != "" {
		args = append(args, filter.Username)
		conditions = append(conditions, fmt.Sprintf("username = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, username, shift_id, reason, replacement, status, reviewed_by, note, created_at, reviewed_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	return requests, total, nil
}

// UpdateRequestStatusParams groups the mutable columns for a review decision.
type UpdateRequestStatusParams struct {
	ID         string
	Status     models.RequestStatus
	ReviewedBy string
	ReviewedAt time.Time
	Note       *string
}

// UpdateStatus transitions a request, guarded to only succeed from PENDING so
// a request cannot be reviewed twice.
func (r *RequestRepository) UpdateStatus(ctx context.Context, params UpdateRequestStatusParams) error {
	query := fmt.Sprintf(`UPDATE requests SET status = :status, reviewed_by = :reviewed_by, reviewed_at = :reviewed_at, note = :note
	WHERE id = :id AND status = '%s'`, models.RequestPending)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          params.ID,
		"status":      params.Status,
		"reviewed_by": params.ReviewedBy,
		"reviewed_at": params.ReviewedAt,
		"note":        params.Note,
	})
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check request update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Cancel transitions a request to CANCELLED, guarded to only succeed from
// PENDING and only for the owning staff member.
func (r *RequestRepository) Cancel(ctx context.Context, id, username string) error {
	const query = `UPDATE requests SET status = $3 WHERE id = $1 AND username = $2 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, username, models.RequestCancelled, models.RequestPending)
	if err != nil {
		return fmt.Errorf("cancel request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check request cancel rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PendingForShift returns any pending request filed against a shift, used to
// reject duplicate change requests on the same allocation.
func (r *RequestRepository) PendingForShift(ctx context.Context, username, shiftID string) (*models.Request, error) {
	const query = `SELECT id, username, shift_id, reason, replacement, status, reviewed_by, note, created_at, reviewed_at
	FROM requests WHERE username = $1 AND shift_id = $2 AND status = $3`
	var req models.Request
	if err := r.db.GetContext(ctx, &req, query, username, shiftID, models.RequestPending); err != nil {
		return nil, err
	}
	return &req, nil
}
