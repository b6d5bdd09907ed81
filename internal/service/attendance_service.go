package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campus-assist/rostering-api/internal/clock"
	"github.com/campus-assist/rostering-api/internal/models"
	appErrors "github.com/campus-assist/rostering-api/pkg/errors"
)

const clockInWindow = 15 * time.Minute

// maxShiftlessSession bounds how long a clock-in with no shift reference
// can stay active before the sweep force-completes it.
const maxShiftlessSession = 8 * time.Hour

type timeEntryRepository interface {
	FindActive(ctx context.Context, exec sqlx.ExtContext, username string, forUpdate bool) (*models.TimeEntry, error)
	FindByStaffShift(ctx context.Context, username, shiftID string) (*models.TimeEntry, error)
	Create(ctx context.Context, exec sqlx.ExtContext, entry *models.TimeEntry) error
	Complete(ctx context.Context, exec sqlx.ExtContext, id string, clockOut time.Time, autoCompleted bool) error
	ListStaleActive(ctx context.Context, now time.Time, maxSession time.Duration) ([]models.TimeEntry, error)
	ListForUser(ctx context.Context, username string, limit int) ([]models.TimeEntry, error)
	CompletedInRange(ctx context.Context, username string, from, to time.Time) ([]models.TimeEntry, error)
	CountAbsentInRange(ctx context.Context, username string, from, to time.Time) (int, error)
	BeginTxx(ctx context.Context) (*sqlx.Tx, error)
}

type attendanceScheduleRepository interface {
	FindShiftByID(ctx context.Context, id string) (*models.Shift, error)
	AllocationsForStaff(ctx context.Context, scheduleID int, username string, start, end time.Time) ([]models.AllocationDetail, error)
}

type attendanceAssistantRepository interface {
	FindHelpDesk(ctx context.Context, username string) (*models.HelpDeskAssistant, error)
	IncrementHoursWorked(ctx context.Context, exec sqlx.ExtContext, username string, delta float64) error
}

// AttendanceService runs the clock-in/clock-out state machine spec.md §4.6
// describes: one active TimeEntry per staff member at a time, clamped
// clock-out against the shift boundary, and a periodic sweep that
// auto-completes abandoned sessions.
type AttendanceService struct {
	entries       timeEntryRepository
	schedules     attendanceScheduleRepository
	assistants    attendanceAssistantRepository
	notifications *NotificationService
	clock         clock.Clock
	logger        *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(entries timeEntryRepository, schedules attendanceScheduleRepository, assistants attendanceAssistantRepository, notifications *NotificationService, c clock.Clock, logger *zap.Logger) *AttendanceService {
	if c == nil {
		c = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{entries: entries, schedules: schedules, assistants: assistants, notifications: notifications, clock: c, logger: logger}
}

// ClockIn opens a new active TimeEntry. If shiftID is empty, it resolves
// today's allocation whose window covers now ± 15 minutes.
func (s *AttendanceService) ClockIn(ctx context.Context, username, shiftID string) (*models.TimeEntry, error) {
	tx, err := s.entries.BeginTxx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin clock-in transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := s.entries.FindActive(ctx, tx, username, true); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "staff already has an active time entry")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check active time entry: %w", err)
	}

	now := s.clock.Now()
	var shift *models.Shift
	if shiftID == "" {
		shift, err = s.resolveTodayShift(ctx, username, now)
		if err != nil {
			return nil, err
		}
		if shift != nil {
			shiftID = shift.ID
		}
	} else {
		shift, err = s.schedules.FindShiftByID(ctx, shiftID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, 404, "shift not found")
		}
	}

	if shift != nil {
		earliestStart := shift.StartAt().Add(-clockInWindow)
		if now.Before(earliestStart) {
			return nil, appErrors.Wrap(fmt.Errorf("clock-in too early"), appErrors.ErrValidation.Code, 422, "too early to clock in for this shift")
		}
		if now.After(shift.EndAt()) {
			return nil, appErrors.Wrap(fmt.Errorf("shift already ended"), appErrors.ErrValidation.Code, 422, "shift has already ended")
		}
	}

	entry := &models.TimeEntry{Username: username, ClockIn: now, Status: models.TimeEntryActive}
	if shiftID != "" {
		entry.ShiftID = &shiftID
	}
	if err := s.entries.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("create time entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit clock-in transaction: %w", err)
	}
	committed = true

	if s.notifications != nil {
		s.notifications.Notify(ctx, username, models.NotificationClockIn, "You clocked in.")
	}
	return entry, nil
}

// ClockOut closes the staff member's active TimeEntry, clamping the
// recorded end time to the shift boundary, and credits the hours ledger.
func (s *AttendanceService) ClockOut(ctx context.Context, username string) (*models.TimeEntry, error) {
	tx, err := s.entries.BeginTxx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin clock-out transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	entry, err := s.entries.FindActive(ctx, tx, username, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active time entry")
		}
		return nil, fmt.Errorf("find active time entry: %w", err)
	}

	now := s.clock.Now()
	effectiveOut := now
	if entry.ShiftID != nil {
		shift, err := s.schedules.FindShiftByID(ctx, *entry.ShiftID)
		if err == nil {
			if end := shift.EndAt(); now.After(end) {
				effectiveOut = end
			}
		}
	}

	if err := s.entries.Complete(ctx, tx, entry.ID, effectiveOut, false); err != nil {
		return nil, fmt.Errorf("complete time entry: %w", err)
	}

	delta := effectiveOut.Sub(entry.ClockIn).Hours()
	if _, err := s.assistants.FindHelpDesk(ctx, username); err == nil {
		if err := s.assistants.IncrementHoursWorked(ctx, tx, username, delta); err != nil {
			return nil, fmt.Errorf("increment hours worked: %w", err)
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check help desk assistant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit clock-out transaction: %w", err)
	}
	committed = true

	entry.ClockOut = &effectiveOut
	entry.Status = models.TimeEntryCompleted

	if s.notifications != nil {
		s.notifications.Notify(ctx, username, models.NotificationClockOut, "You clocked out.")
	}
	return entry, nil
}

// MarkMissed records an absence for a (staff, shift) pair that has no
// existing TimeEntry.
func (s *AttendanceService) MarkMissed(ctx context.Context, username, shiftID string) error {
	if _, err := s.entries.FindByStaffShift(ctx, username, shiftID); err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "a time entry already exists for this shift")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check existing time entry: %w", err)
	}

	shift, err := s.schedules.FindShiftByID(ctx, shiftID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, 404, "shift not found")
	}

	entry := &models.TimeEntry{
		Username: username,
		ShiftID:  &shiftID,
		ClockIn:  shift.StartAt(),
		Status:   models.TimeEntryAbsent,
	}
	if err := s.entries.Create(ctx, nil, entry); err != nil {
		return fmt.Errorf("create missed time entry: %w", err)
	}

	if s.notifications != nil {
		s.notifications.Notify(ctx, username, models.NotificationMissed, "You missed a scheduled shift.")
	}
	return nil
}

// AutoCompleteSweep force-completes every active entry whose shift has
// already ended, or whose shiftless session exceeds maxShiftlessSession.
// Safe to run repeatedly.
func (s *AttendanceService) AutoCompleteSweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	stale, err := s.entries.ListStaleActive(ctx, now, maxShiftlessSession)
	if err != nil {
		return 0, fmt.Errorf("list stale active entries: %w", err)
	}

	completed := 0
	for _, entry := range stale {
		effectiveOut := now
		if entry.ShiftID != nil {
			if shift, err := s.schedules.FindShiftByID(ctx, *entry.ShiftID); err == nil {
				effectiveOut = shift.EndAt()
			}
		} else {
			effectiveOut = entry.ClockIn.Add(maxShiftlessSession)
		}

		if err := s.entries.Complete(ctx, nil, entry.ID, effectiveOut, true); err != nil {
			s.logger.Error("auto-complete time entry failed", zap.Error(err), zap.String("entry_id", entry.ID))
			continue
		}
		if s.notifications != nil {
			s.notifications.Notify(ctx, entry.Username, models.NotificationClockOut, "Your shift was auto-completed.")
		}
		completed++
	}
	return completed, nil
}

// CheckAndCompleteAbandoned runs the per-staff version of the sweep,
// invoked before reading that staff's attendance snapshot.
func (s *AttendanceService) CheckAndCompleteAbandoned(ctx context.Context, username string) error {
	entry, err := s.entries.FindActive(ctx, nil, username, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find active time entry: %w", err)
	}

	now := s.clock.Now()
	var ended bool
	var effectiveOut time.Time
	if entry.ShiftID != nil {
		shift, err := s.schedules.FindShiftByID(ctx, *entry.ShiftID)
		if err == nil && now.After(shift.EndAt()) {
			ended = true
			effectiveOut = shift.EndAt()
		}
	} else if now.Sub(entry.ClockIn) > maxShiftlessSession {
		ended = true
		effectiveOut = entry.ClockIn.Add(maxShiftlessSession)
	}

	if !ended {
		return nil
	}
	if err := s.entries.Complete(ctx, nil, entry.ID, effectiveOut, true); err != nil {
		return fmt.Errorf("auto-complete abandoned entry: %w", err)
	}
	if s.notifications != nil {
		s.notifications.Notify(ctx, username, models.NotificationClockOut, "Your shift was auto-completed.")
	}
	return nil
}

// TodayShift returns the derived snapshot spec.md §4.6 names.
func (s *AttendanceService) TodayShift(ctx context.Context, username string) (*models.TodayShiftView, error) {
	if err := s.CheckAndCompleteAbandoned(ctx, username); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	active, err := s.entries.FindActive(ctx, nil, username, false)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find active time entry: %w", err)
	}
	if active != nil {
		view := &models.TodayShiftView{Status: models.TodayShiftActive, ShiftID: active.ShiftID, StartsNow: true}
		if active.ShiftID != nil {
			if shift, err := s.schedules.FindShiftByID(ctx, *active.ShiftID); err == nil {
				view.TimeRange = shift.StartTime.String() + "-" + shift.EndTime.String()
			}
		}
		return view, nil
	}

	shift, err := s.resolveTodayShift(ctx, username, now)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return &models.TodayShiftView{Status: models.TodayShiftNone}, nil
	}

	view := &models.TodayShiftView{
		ShiftID:   &shift.ID,
		TimeRange: shift.StartTime.String() + "-" + shift.EndTime.String(),
	}
	switch {
	case now.After(shift.EndAt()):
		view.Status = models.TodayShiftCompleted
	case now.Before(shift.StartAt()):
		view.Status = models.TodayShiftFuture
		until := shift.StartAt().Sub(now)
		view.TimeUntil = &until
	default:
		view.Status = models.TodayShiftFuture
	}
	return view, nil
}

// Stats aggregates worked hours and absences over daily/weekly/monthly/
// semester windows. Week starts Monday; month is the calendar month.
func (s *AttendanceService) Stats(ctx context.Context, username string) (*models.AttendanceStats, error) {
	now := s.clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := dayStart.AddDate(0, 0, -int(dayStart.Weekday()+6)%7)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	semesterStart := semesterStart(now)

	stats := &models.AttendanceStats{}
	var err error
	if stats.Daily, err = s.windowStats(ctx, username, dayStart, now); err != nil {
		return nil, err
	}
	if stats.Weekly, err = s.windowStats(ctx, username, weekStart, now); err != nil {
		return nil, err
	}
	if stats.Monthly, err = s.windowStats(ctx, username, monthStart, now); err != nil {
		return nil, err
	}
	if stats.Semester, err = s.windowStats(ctx, username, semesterStart, now); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *AttendanceService) windowStats(ctx context.Context, username string, from, to time.Time) (models.WindowStats, error) {
	entries, err := s.entries.CompletedInRange(ctx, username, from, to)
	if err != nil {
		return models.WindowStats{}, fmt.Errorf("load completed entries: %w", err)
	}
	var hours float64
	for _, e := range entries {
		hours += e.DurationHours()
	}
	absences, err := s.entries.CountAbsentInRange(ctx, username, from, to)
	if err != nil {
		return models.WindowStats{}, fmt.Errorf("count absences: %w", err)
	}
	return models.WindowStats{Hours: hours, Absences: absences}, nil
}

// ShiftHistory returns a staff member's most recent time entries.
func (s *AttendanceService) ShiftHistory(ctx context.Context, username string, limit int) ([]models.TimeEntry, error) {
	return s.entries.ListForUser(ctx, username, limit)
}

// TimeDistribution buckets completed hours by weekday for UI plotting.
func (s *AttendanceService) TimeDistribution(ctx context.Context, username string) ([]models.WeekdayHours, error) {
	semesterBegin := semesterStart(s.clock.Now())
	entries, err := s.entries.CompletedInRange(ctx, username, semesterBegin, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("load completed entries: %w", err)
	}

	byDay := make(map[models.DayOfWeek]float64)
	for _, e := range entries {
		day := models.DayOfWeek((int(e.ClockIn.Weekday()) + 6) % 7)
		byDay[day] += e.DurationHours()
	}

	result := make([]models.WeekdayHours, 7)
	for d := 0; d < 7; d++ {
		result[d] = models.WeekdayHours{Weekday: models.DayOfWeek(d), Hours: byDay[models.DayOfWeek(d)]}
	}
	return result, nil
}

func (s *AttendanceService) resolveTodayShift(ctx context.Context, username string, now time.Time) (*models.Shift, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	for _, scheduleID := range []int{models.PrimaryScheduleHelpDesk, models.PrimaryScheduleLab} {
		allocations, err := s.schedules.AllocationsForStaff(ctx, scheduleID, username, dayStart, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("load today's allocations: %w", err)
		}
		for _, a := range allocations {
			shift := models.Shift{ID: a.ShiftID, Date: a.Date, StartTime: a.StartTime, EndTime: a.EndTime}
			if now.After(shift.StartAt().Add(-clockInWindow)) && now.Before(shift.EndAt().Add(clockInWindow)) {
				return &shift, nil
			}
		}
	}
	return nil, nil
}

func semesterStart(now time.Time) time.Time {
	year := now.Year()
	if now.Month() < time.July {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
	}
	return time.Date(year, time.July, 1, 0, 0, 0, 0, now.Location())
}
