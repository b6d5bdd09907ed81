package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-assist/rostering-api/internal/models"
)

func newRequestMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRequestRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRequestMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.Request{
		Username: "alice",
		ShiftID:  "shift-1",
		Reason:   "doctor appointment",
	}
	require.NoError(t, repo.Create(context.Background(), req))

	rows := sqlmock.NewRows([]string{"id", "username", "shift_id", "reason", "replacement", "status", "reviewed_by", "note", "created_at", "reviewed_at"}).
		AddRow(req.ID, "alice", "shift-1", "doctor appointment", nil, "PENDING", nil, nil, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, shift_id, reason, replacement, status, reviewed_by, note, created_at, reviewed_at")).
		WithArgs(req.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, found.ID)
	assert.Equal(t, models.RequestPending, found.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRequestMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "shift_id", "reason", "replacement", "status", "reviewed_by", "note", "created_at", "reviewed_at"}).
		AddRow("req-1", "alice", "shift-1", "doctor appointment", nil, "PENDING", nil, nil, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, shift_id, reason, replacement, status, reviewed_by, note, created_at, reviewed_at")).
		WithArgs("alice").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.RequestFilter{Username: "alice"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRequestMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Now()
	note := "approved, covered by bob"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.UpdateStatus(context.Background(), UpdateRequestStatusParams{
		ID:         "req-1",
		Status:     models.RequestApproved,
		ReviewedBy: "admin-1",
		ReviewedAt: now,
		Note:       &note,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.UpdateStatus(context.Background(), UpdateRequestStatusParams{
		ID:         "req-1",
		Status:     models.RequestApproved,
		ReviewedBy: "admin-1",
		ReviewedAt: now,
	})
	require.Error(t, err)
}

func TestRequestRepositoryCancel(t *testing.T) {
	db, mock, cleanup := newRequestMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET status = $3")).
		WithArgs("req-1", "alice", models.RequestCancelled, models.RequestPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Cancel(context.Background(), "req-1", "alice")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
