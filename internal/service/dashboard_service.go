package service

import (
	"context"
	"fmt"
	"time"

	"github.com/campus-assist/rostering-api/internal/clock"
	"github.com/campus-assist/rostering-api/internal/models"
)

type dashboardStudentRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Student, error)
}

// DashboardSnapshot is the volunteer dashboard payload spec.md §6 names:
// the caller's profile, their next upcoming shift, their shifts in the
// window, and the full grid for their pool.
type DashboardSnapshot struct {
	Student   *models.Student             `json:"student"`
	NextShift *models.AllocationDetail    `json:"next_shift,omitempty"`
	MyShifts  []models.AllocationDetail   `json:"my_shifts"`
	Grid      []models.Shift              `json:"grid"`
	GridStaff []models.AllocationDetail   `json:"grid_allocations"`
}

// DashboardService assembles the single-call snapshot a staff member's
// landing page renders from, fanning out to the repositories that already
// serve the schedule grid and attendance views individually.
type DashboardService struct {
	students dashboardStudentRepository
	grid     schedulerScheduleRepository
	clock    clock.Clock
}

// NewDashboardService constructs the service.
func NewDashboardService(students dashboardStudentRepository, grid schedulerScheduleRepository, c clock.Clock) *DashboardService {
	if c == nil {
		c = clock.Real()
	}
	return &DashboardService{students: students, grid: grid, clock: c}
}

// Snapshot assembles the dashboard for username in kind's pool over
// [start,end).
func (s *DashboardService) Snapshot(ctx context.Context, username string, kind models.StaffKind, start, end time.Time) (*DashboardSnapshot, error) {
	student, err := s.students.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}

	scheduleID := models.FixedScheduleID(models.ScheduleKind(kind))
	myShifts, err := s.grid.AllocationsForStaff(ctx, scheduleID, username, start, end)
	if err != nil {
		return nil, fmt.Errorf("load my shifts: %w", err)
	}

	now := s.clock.Now()
	var next *models.AllocationDetail
	for i := range myShifts {
		shift := models.Shift{Date: myShifts[i].Date, StartTime: myShifts[i].StartTime, EndTime: myShifts[i].EndTime}
		if shift.StartAt().After(now) && (next == nil || shift.StartAt().Before(models.Shift{Date: next.Date, StartTime: next.StartTime}.StartAt())) {
			next = &myShifts[i]
		}
	}

	gridShifts, err := s.grid.Grid(ctx, scheduleID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load grid: %w", err)
	}
	ids := make([]string, len(gridShifts))
	for i, sh := range gridShifts {
		ids[i] = sh.ID
	}
	gridAllocations, err := s.grid.AllocationsForShifts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load grid allocations: %w", err)
	}

	return &DashboardSnapshot{
		Student:   student,
		NextShift: next,
		MyShifts:  myShifts,
		Grid:      gridShifts,
		GridStaff: gridAllocations,
	}, nil
}
