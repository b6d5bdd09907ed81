package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campus-assist/rostering-api/internal/models"
	appErrors "github.com/campus-assist/rostering-api/pkg/errors"
)

// AssignmentCell is one (day,time,staff[]) entry of a save_assignments
// request: the staff roster the caller wants for one shift slot.
type AssignmentCell struct {
	Date     time.Time
	Start    models.TimeOfDay
	End      models.TimeOfDay
	Staff    []string
}

// ScheduleEditorService lets an admin hand-adjust a generated schedule.
// SaveAssignments and AddAllocation each run inside one transaction and
// lock the row of every shift whose allocations they write, so concurrent
// editor writes against the same shift serialize. RemoveAllocation is a
// single DELETE outside a transaction and takes no shift lock.
type ScheduleEditorService struct {
	schedules    schedulerScheduleRepository
	availability availabilityRepository
	logger       *zap.Logger
}

// NewScheduleEditorService constructs the editor.
func NewScheduleEditorService(schedules schedulerScheduleRepository, availability availabilityRepository, logger *zap.Logger) *ScheduleEditorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleEditorService{schedules: schedules, availability: availability, logger: logger}
}

// SaveAssignments ensures the schedule row spans [start,end], resolves or
// creates each cell's shift, replaces its allocations, and rejects any
// (shift,staff) pair whose availability does not cover the slot. All or
// nothing: any rejection rolls back the whole request.
func (s *ScheduleEditorService) SaveAssignments(ctx context.Context, kind models.StaffKind, start, end time.Time, cells []AssignmentCell) error {
	scheduleKind := models.ScheduleKind(kind)
	scheduleID := models.FixedScheduleID(scheduleKind)

	tx, err := s.schedules.BeginTxx(ctx)
	if err != nil {
		return fmt.Errorf("begin schedule transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := s.schedules.EnsureExists(ctx, tx, scheduleKind, start, end); err != nil {
		return fmt.Errorf("ensure schedule exists: %w", err)
	}

	for _, cell := range cells {
		shift, err := s.schedules.FindShiftByDayTime(ctx, tx, scheduleID, cell.Date, cell.Start)
		if errors.Is(err, sql.ErrNoRows) {
			shift = &models.Shift{ScheduleID: scheduleID, Date: cell.Date, StartTime: cell.Start, EndTime: cell.End}
			if err := s.schedules.InsertShift(ctx, tx, shift); err != nil {
				return fmt.Errorf("insert shift: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("resolve shift: %w", err)
		}

		if err := s.schedules.LockShift(ctx, tx, shift.ID); err != nil {
			return err
		}

		if err := s.schedules.ClearAllocationsForShift(ctx, tx, shift.ID); err != nil {
			return fmt.Errorf("clear prior allocations: %w", err)
		}

		for _, username := range cell.Staff {
			covered, err := s.availabilityCovers(ctx, username, shift.Weekday(), shift.StartTime.Hour)
			if err != nil {
				return err
			}
			if !covered {
				return appErrors.Wrap(fmt.Errorf("%s not available for shift %s", username, shift.ID),
					appErrors.ErrValidation.Code, 422, "staff availability does not cover this shift")
			}
			if err := s.schedules.InsertAllocation(ctx, tx, &models.Allocation{ScheduleID: scheduleID, ShiftID: shift.ID, Username: username}); err != nil {
				return fmt.Errorf("insert allocation: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule transaction: %w", err)
	}
	committed = true
	return nil
}

// AddAllocation inserts one allocation, locking the parent shift first so
// concurrent adds against the same shift serialize. Rejects duplicates
// with 409 and unavailable staff with 422.
func (s *ScheduleEditorService) AddAllocation(ctx context.Context, scheduleID int, shiftID, username string) error {
	tx, err := s.schedules.BeginTxx(ctx)
	if err != nil {
		return fmt.Errorf("begin allocation transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	shift, err := s.schedules.FindShiftByID(ctx, shiftID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, 404, "shift not found")
	}

	if err := s.schedules.LockShift(ctx, tx, shiftID); err != nil {
		return err
	}

	exists, err := s.schedules.ExistsForShiftStaff(ctx, tx, shiftID, username)
	if err != nil {
		return fmt.Errorf("check existing allocation: %w", err)
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "staff is already allocated to this shift")
	}

	covered, err := s.availabilityCovers(ctx, username, shift.Weekday(), shift.StartTime.Hour)
	if err != nil {
		return err
	}
	if !covered {
		return appErrors.Wrap(fmt.Errorf("%s not available", username), appErrors.ErrValidation.Code, 422, "staff availability does not cover this shift")
	}

	if err := s.schedules.InsertAllocation(ctx, tx, &models.Allocation{ScheduleID: scheduleID, ShiftID: shiftID, Username: username}); err != nil {
		return fmt.Errorf("insert allocation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit allocation transaction: %w", err)
	}
	committed = true
	return nil
}

// RemoveAllocation deletes exactly one allocation by (shift, staff); 404 if
// no such allocation exists.
func (s *ScheduleEditorService) RemoveAllocation(ctx context.Context, shiftID, username string) error {
	if err := s.schedules.DeleteAllocationByShiftStaff(ctx, nil, shiftID, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
		}
		return fmt.Errorf("remove allocation: %w", err)
	}
	return nil
}

func (s *ScheduleEditorService) availabilityCovers(ctx context.Context, username string, day models.DayOfWeek, hour int) (bool, error) {
	windows, err := s.availability.ListForDay(ctx, day)
	if err != nil {
		return false, fmt.Errorf("load day availability: %w", err)
	}
	for _, w := range windows {
		if w.Username == username && w.StartTime.CoversHour(w.EndTime, hour) {
			return true, nil
		}
	}
	return false, nil
}

