package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-assist/rostering-api/internal/clock"
	"github.com/campus-assist/rostering-api/internal/models"
	"github.com/campus-assist/rostering-api/internal/repository"
	appErrors "github.com/campus-assist/rostering-api/pkg/errors"
)

type mockRequestRepo struct {
	pending      *models.Request
	pendingErr   error
	created      *models.Request
	byID         *models.Request
	updateParams *repository.UpdateRequestStatusParams
	updateErr    error
	cancelErr    error
}

func (m *mockRequestRepo) Create(ctx context.Context, req *models.Request) error {
	m.created = req
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*models.Request, error) {
	if m.byID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byID, nil
}

func (m *mockRequestRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	return nil, 0, nil
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, params repository.UpdateRequestStatusParams) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updateParams = &params
	return nil
}

func (m *mockRequestRepo) Cancel(ctx context.Context, id, username string) error {
	return m.cancelErr
}

func (m *mockRequestRepo) PendingForShift(ctx context.Context, username, shiftID string) (*models.Request, error) {
	if m.pendingErr != nil {
		return nil, m.pendingErr
	}
	if m.pending == nil {
		return nil, sql.ErrNoRows
	}
	return m.pending, nil
}

type mockNotificationRepoForRequest struct{}

func (mockNotificationRepoForRequest) Create(ctx context.Context, n *models.Notification) error {
	return nil
}
func (mockNotificationRepoForRequest) ListForUser(ctx context.Context, username string, limit int) ([]models.Notification, error) {
	return nil, nil
}
func (mockNotificationRepoForRequest) MarkRead(ctx context.Context, username, id string) error {
	return nil
}

func TestRequestServiceSubmitCreatesPending(t *testing.T) {
	repo := &mockRequestRepo{}
	notif := NewNotificationService(mockNotificationRepoForRequest{}, nil, zap.NewNop())
	svc := NewRequestService(repo, notif, clock.Fixed(time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)), zap.NewNop())

	req, err := svc.Submit(context.Background(), "alice", "shift-1", "doctor appointment", nil)
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, "alice", req.Username)
}

func TestRequestServiceSubmitRejectsDuplicatePending(t *testing.T) {
	repo := &mockRequestRepo{pending: &models.Request{ID: "req-1", Status: models.RequestPending}}
	svc := NewRequestService(repo, nil, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), "alice", "shift-1", "reason", nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestRequestServiceApproveUpdatesStatus(t *testing.T) {
	repo := &mockRequestRepo{byID: &models.Request{ID: "req-1", Username: "alice", Status: models.RequestPending}}
	notif := NewNotificationService(mockNotificationRepoForRequest{}, nil, zap.NewNop())
	svc := NewRequestService(repo, notif, nil, zap.NewNop())

	err := svc.Approve(context.Background(), "req-1", "admin", nil)
	require.NoError(t, err)
	require.NotNil(t, repo.updateParams)
	assert.Equal(t, models.RequestApproved, repo.updateParams.Status)
	assert.Equal(t, "admin", repo.updateParams.ReviewedBy)
}

func TestRequestServiceApproveNotFound(t *testing.T) {
	repo := &mockRequestRepo{}
	svc := NewRequestService(repo, nil, nil, zap.NewNop())

	err := svc.Approve(context.Background(), "missing", "admin", nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRequestServiceCancelPropagatesConflict(t *testing.T) {
	repo := &mockRequestRepo{cancelErr: sql.ErrNoRows}
	svc := NewRequestService(repo, nil, nil, zap.NewNop())

	err := svc.Cancel(context.Background(), "req-1", "alice")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}
