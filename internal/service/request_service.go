package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/campus-assist/rostering-api/internal/clock"
	"github.com/campus-assist/rostering-api/internal/models"
	appErrors "github.com/campus-assist/rostering-api/pkg/errors"
	"github.com/campus-assist/rostering-api/internal/repository"
)

type requestRepository interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error)
	UpdateStatus(ctx context.Context, params repository.UpdateRequestStatusParams) error
	Cancel(ctx context.Context, id, username string) error
	PendingForShift(ctx context.Context, username, shiftID string) (*models.Request, error)
}

// RequestService runs the shift-change request lifecycle: PENDING ->
// APPROVED|REJECTED (terminal, admin-only) or PENDING -> CANCELLED
// (owner-only). Approval never reallocates the shift itself; that remains
// a separate ScheduleEditorService call.
type RequestService struct {
	repo          requestRepository
	notifications *NotificationService
	clock         clock.Clock
	logger        *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(repo requestRepository, notifications *NotificationService, c clock.Clock, logger *zap.Logger) *RequestService {
	if c == nil {
		c = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{repo: repo, notifications: notifications, clock: c, logger: logger}
}

// Submit files a new PENDING request against an allocation, rejecting a
// second request while one is already pending on the same shift.
func (s *RequestService) Submit(ctx context.Context, username, shiftID, reason string, replacement *string) (*models.Request, error) {
	if _, err := s.repo.PendingForShift(ctx, username, shiftID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a request is already pending for this shift")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check pending request: %w", err)
	}

	req := &models.Request{
		Username:    username,
		ShiftID:     shiftID,
		Reason:      reason,
		Replacement: replacement,
		Status:      models.RequestPending,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if s.notifications != nil {
		s.notifications.Notify(ctx, username, models.NotificationRequest, "Your shift-change request was submitted.")
	}
	return req, nil
}

// List returns requests matching the filter.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	return s.repo.List(ctx, filter)
}

// Approve transitions a PENDING request to APPROVED. Admin-only at the
// handler layer; this method trusts reviewedBy is already authorized.
func (s *RequestService) Approve(ctx context.Context, id, reviewedBy string, note *string) error {
	return s.review(ctx, id, models.RequestApproved, reviewedBy, note, models.NotificationApproval, "Your shift-change request was approved.")
}

// Reject transitions a PENDING request to REJECTED.
func (s *RequestService) Reject(ctx context.Context, id, reviewedBy string, note *string) error {
	return s.review(ctx, id, models.RequestRejected, reviewedBy, note, models.NotificationRejection, "Your shift-change request was rejected.")
}

func (s *RequestService) review(ctx context.Context, id string, status models.RequestStatus, reviewedBy string, note *string, kind models.NotificationKind, message string) error {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return fmt.Errorf("load request: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, repository.UpdateRequestStatusParams{
		ID:         id,
		Status:     status,
		ReviewedBy: reviewedBy,
		ReviewedAt: s.clock.Now(),
		Note:       note,
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "request is no longer pending")
		}
		return fmt.Errorf("update request status: %w", err)
	}

	if s.notifications != nil {
		s.notifications.Notify(ctx, req.Username, kind, message)
	}
	return nil
}

// Cancel transitions a PENDING request to CANCELLED; only the owning staff
// member may cancel their own request.
func (s *RequestService) Cancel(ctx context.Context, id, username string) error {
	if err := s.repo.Cancel(ctx, id, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "request is not pending or not owned by caller")
		}
		return fmt.Errorf("cancel request: %w", err)
	}
	return nil
}
