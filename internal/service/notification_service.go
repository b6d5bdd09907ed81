package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campus-assist/rostering-api/internal/jobs"
	"github.com/campus-assist/rostering-api/internal/models"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, username string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, username, id string) error
}

// notificationProducer is the asynq-backed delivery queue. Optional: a nil
// producer means notifications are persisted but not fanned out anywhere,
// which is sufficient for tests and for deployments without Redis.
type notificationProducer interface {
	Enqueue(ctx context.Context, payload jobs.NotificationPayload)
}

// NotificationService writes the append-only notification log from the
// fixed kind catalog and best-effort enqueues delivery.
type NotificationService struct {
	repo     notificationRepository
	producer notificationProducer
	logger   *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationRepository, producer notificationProducer, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, producer: producer, logger: logger}
}

// Notify persists a notification and enqueues best-effort delivery. It
// never returns an error to the caller: a failed notification must not
// abort the domain operation that triggered it, so failures are logged.
func (s *NotificationService) Notify(ctx context.Context, username string, kind models.NotificationKind, message string) {
	n := &models.Notification{Username: username, Kind: kind, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("persist notification", zap.Error(err), zap.String("username", username), zap.String("kind", string(kind)))
		return
	}
	if s.producer != nil {
		s.producer.Enqueue(ctx, jobs.NotificationPayload{Username: username, Message: message, Kind: kind})
	}
}

// ListForUser returns a recipient's most recent notifications.
func (s *NotificationService) ListForUser(ctx context.Context, username string, limit int) ([]models.Notification, error) {
	rows, err := s.repo.ListForUser(ctx, username, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return rows, nil
}

// MarkRead flips the read flag on a notification owned by username.
func (s *NotificationService) MarkRead(ctx context.Context, username, id string) error {
	if err := s.repo.MarkRead(ctx, username, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
