package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-assist/rostering-api/internal/models"
	"github.com/campus-assist/rostering-api/pkg/storage"
)

type exportEntriesStub struct{}

func (exportEntriesStub) ListInRange(ctx context.Context, scheduleID int, username string, from, to time.Time) ([]models.TimeEntry, error) {
	clockOut := from.Add(4 * time.Hour)
	return []models.TimeEntry{
		{ID: "te-1", Username: "alice", ClockIn: from, ClockOut: &clockOut, Status: models.TimeEntryCompleted},
	}, nil
}

type exportSchedulesStub struct{}

func (exportSchedulesStub) Grid(ctx context.Context, scheduleID int, start, end time.Time) ([]models.Shift, error) {
	return []models.Shift{
		{ID: "shift-1", ScheduleID: scheduleID, Date: start, StartTime: models.NewTimeOfDay(8, 0), EndTime: models.NewTimeOfDay(12, 0)},
	}, nil
}

func (exportSchedulesStub) AllocationsForShifts(ctx context.Context, shiftIDs []string) ([]models.AllocationDetail, error) {
	return []models.AllocationDetail{
		{Allocation: models.Allocation{ShiftID: "shift-1", Username: "alice"}, StaffName: "Alice"},
	}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(exportEntriesStub{}, exportSchedulesStub{}, store, signer, cfg, zap.NewNop())
	return svc, store
}

func TestExportServiceGenerateAttendanceCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:   "job-1",
		Type: models.ReportTypeAttendance,
		Params: models.ReportJobParams{
			Username:  "alice",
			StartDate: "2026-08-01",
			EndDate:   "2026-08-07",
			Format:    models.ReportFormatCSV,
		},
		CreatedBy: "admin",
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/reports/download/")

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateSchedulePDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:   "job-2",
		Type: models.ReportTypeSchedule,
		Params: models.ReportJobParams{
			ScheduleID: models.PrimaryScheduleHelpDesk,
			StartDate:  "2026-08-01",
			EndDate:    "2026-08-07",
			Format:     models.ReportFormatPDF,
		},
		CreatedBy: "admin",
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateRejectsUnsupportedFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:   "job-3",
		Type: models.ReportTypeAttendance,
		Params: models.ReportJobParams{
			StartDate: "2026-08-01",
			EndDate:   "2026-08-07",
			Format:    "xml",
		},
	}

	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
