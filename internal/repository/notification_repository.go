package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-assist/rostering-api/internal/models"
)

// NotificationRepository persists the append-only notification log the
// event sink writes to and the recipient reads from.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create appends one notification row.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, username, message, kind, read, created_at) VALUES (:id, :username, :message, :kind, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListForUser returns the most recent notifications for a recipient.
func (r *NotificationRepository) ListForUser(ctx context.Context, username string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `SELECT id, username, message, kind, read, created_at FROM notifications WHERE username = $1 ORDER BY created_at DESC LIMIT $2`
	var rows []models.Notification
	if err := r.db.SelectContext(ctx, &rows, query, username, limit); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return rows, nil
}

// MarkRead flips the read flag for a notification owned by username.
func (r *NotificationRepository) MarkRead(ctx context.Context, username, id string) error {
	const query = `UPDATE notifications SET read = true WHERE id = $1 AND username = $2`
	if _, err := r.db.ExecContext(ctx, query, id, username); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
