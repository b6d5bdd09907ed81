package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/campus-assist/rostering-api/internal/models"
	appErrors "github.com/campus-assist/rostering-api/pkg/errors"
)

const schedulerSlowThreshold = 2 * time.Second

type schedulerScheduleRepository interface {
	EnsureExists(ctx context.Context, exec sqlx.ExtContext, kind models.ScheduleKind, start, end time.Time) (*models.Schedule, error)
	FindByID(ctx context.Context, id int) (*models.Schedule, error)
	SetPublished(ctx context.Context, id int, published bool) (bool, error)
	ClearRange(ctx context.Context, exec sqlx.ExtContext, scheduleID int, start, end time.Time) error
	InsertShift(ctx context.Context, exec sqlx.ExtContext, shift *models.Shift) error
	InsertShiftCourseDemand(ctx context.Context, exec sqlx.ExtContext, demand *models.ShiftCourseDemand) error
	InsertAllocation(ctx context.Context, exec sqlx.ExtContext, alloc *models.Allocation) error
	DistinctAllocatedStaff(ctx context.Context, scheduleID int) ([]string, error)
	Grid(ctx context.Context, scheduleID int, start, end time.Time) ([]models.Shift, error)
	AllocationsForShifts(ctx context.Context, shiftIDs []string) ([]models.AllocationDetail, error)
	AllocationsForStaff(ctx context.Context, scheduleID int, username string, start, end time.Time) ([]models.AllocationDetail, error)
	FindShiftByDayTime(ctx context.Context, exec sqlx.ExtContext, scheduleID int, date time.Time, start models.TimeOfDay) (*models.Shift, error)
	FindShiftByID(ctx context.Context, id string) (*models.Shift, error)
	ClearAllocationsForShift(ctx context.Context, exec sqlx.ExtContext, shiftID string) error
	ExistsForShiftStaff(ctx context.Context, exec sqlx.ExtContext, shiftID, username string) (bool, error)
	DeleteAllocationByShiftStaff(ctx context.Context, exec sqlx.ExtContext, shiftID, username string) error
	LockShift(ctx context.Context, tx *sqlx.Tx, shiftID string) error
	BeginTxx(ctx context.Context) (*sqlx.Tx, error)
}

type schedulerCourseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	AllCapabilities(ctx context.Context) ([]models.CourseCapability, error)
}

// SchedulerService builds the shift grid for a date range and greedily
// assigns staff to shifts. There is no ILP/LP solver dependency anywhere
// the assignment problem is formulated as a most-constrained-shift-first
// placement, matching the absence of a combinatorial-optimization library
// in the retrieved corpus. Placement looks only at availability, staff
// workload and the staffing options; course demands are written with the
// grid but do not steer placement, and no weighted-shortfall score is
// computed.
type SchedulerService struct {
	schedules     schedulerScheduleRepository
	courses       schedulerCourseRepository
	availability  *AvailabilityService
	pools         assistantPoolRepository
	notifications *NotificationService
	timeout       time.Duration
	logger        *zap.Logger
}

// NewSchedulerService constructs the scheduler.
func NewSchedulerService(schedules schedulerScheduleRepository, courses schedulerCourseRepository, availability *AvailabilityService, pools assistantPoolRepository, notifications *NotificationService, timeout time.Duration, logger *zap.Logger) *SchedulerService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerService{schedules: schedules, courses: courses, availability: availability, pools: pools, notifications: notifications, timeout: timeout, logger: logger}
}

type eligibleStaff struct {
	username     string
	hoursMinimum int
	assigned     int
	capabilities map[string]bool
}

type shiftCandidate struct {
	shift   models.Shift
	demands []models.ShiftCourseDemand
}

// Generate builds the grid for [start,end], greedily assigns staff, and
// writes the result atomically. It never returns a raw 5xx for solver
// exhaustion: infeasibility after the full relaxation ladder, or the time
// budget running out during placement, comes back as a status=error
// result, matching spec.md §5's scheduler contract.
func (s *SchedulerService) Generate(ctx context.Context, kind models.StaffKind, start, end time.Time, opts models.GenerateOptions) (*models.GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startedAt := time.Now()
	scheduleKind := models.ScheduleKind(kind)
	scheduleID := models.FixedScheduleID(scheduleKind)

	candidates, err := s.buildGrid(scheduleKind, start, end)
	if err != nil {
		return nil, fmt.Errorf("build shift grid: %w", err)
	}

	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	demandsByShift := make(map[int][]models.ShiftCourseDemand, len(candidates))
	for i, c := range candidates {
		demands := make([]models.ShiftCourseDemand, 0, len(courses))
		for _, course := range courses {
			required, weight := 2, 2
			if override, ok := opts.DemandOverrides[course.Code]; ok {
				required, weight = override.TutorsRequired, override.Weight
			}
			demands = append(demands, models.ShiftCourseDemand{CourseCode: course.Code, TutorsRequired: required, Weight: weight})
		}
		demandsByShift[i] = demands
		candidates[i].demands = demands
	}

	staff, err := s.eligibleStaffFor(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load eligible staff: %w", err)
	}

	effectiveOpts := opts
	if effectiveOpts.MinimumStaff <= 0 {
		effectiveOpts.MinimumStaff = models.DefaultGenerateOptions().MinimumStaff
	}
	if effectiveOpts.PreferredStaff <= 0 {
		effectiveOpts.PreferredStaff = effectiveOpts.MinimumStaff
	}

	var relaxations []string
	assignments, err := s.assign(ctx, candidates, staff, effectiveOpts)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &models.GenerateResult{Status: models.StatusError, Reason: appErrors.ErrSolverTimeout.Code}, nil
		}
		return nil, err
	}

	if !satisfiesFloor(assignments, candidates, effectiveOpts.MinimumStaff) {
		relaxed := effectiveOpts
		relaxed.MaxConsecutiveHours = 0
		for _, member := range staff {
			member.hoursMinimum = 0
		}
		assignments, _ = s.assign(ctx, candidates, staff, relaxed)
		relaxations = append(relaxations, models.RelaxationWorkloadFloorDropped)
	}

	if !satisfiesFloor(assignments, candidates, effectiveOpts.MinimumStaff) && effectiveOpts.MaximumStaff != nil {
		relaxed := effectiveOpts
		relaxed.MaximumStaff = nil
		assignments, _ = s.assign(ctx, candidates, staff, relaxed)
		relaxations = append(relaxations, models.RelaxationMaximumDropped)
	}

	if !satisfiesFloor(assignments, candidates, effectiveOpts.MinimumStaff) && effectiveOpts.MinimumStaff > 1 {
		relaxed := effectiveOpts
		relaxed.MinimumStaff = effectiveOpts.MinimumStaff - 1
		assignments, _ = s.assign(ctx, candidates, staff, relaxed)
		relaxations = append(relaxations, models.RelaxationMinimumFloorReduced)
		effectiveOpts = relaxed
	}

	if !satisfiesFloor(assignments, candidates, effectiveOpts.MinimumStaff) {
		reason := appErrors.ErrSolverInfeasible.Code
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = appErrors.ErrSolverTimeout.Code
		}
		return &models.GenerateResult{
			Status:  models.StatusError,
			Reason:  reason,
		}, nil
	}

	tx, err := s.schedules.BeginTxx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin schedule transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := s.schedules.EnsureExists(ctx, tx, scheduleKind, start, end); err != nil {
		return nil, fmt.Errorf("ensure schedule exists: %w", err)
	}
	if err := s.schedules.ClearRange(ctx, tx, scheduleID, start, end); err != nil {
		return nil, fmt.Errorf("clear schedule range: %w", err)
	}

	assignmentsCreated := 0
	for i, c := range candidates {
		shift := c.shift
		shift.ScheduleID = scheduleID
		if err := s.schedules.InsertShift(ctx, tx, &shift); err != nil {
			return nil, fmt.Errorf("insert shift: %w", err)
		}
		for _, d := range demandsByShift[i] {
			d.ShiftID = shift.ID
			if err := s.schedules.InsertShiftCourseDemand(ctx, tx, &d); err != nil {
				return nil, fmt.Errorf("insert shift course demand: %w", err)
			}
		}
		for _, username := range assignments[i] {
			alloc := &models.Allocation{ScheduleID: scheduleID, ShiftID: shift.ID, Username: username}
			if err := s.schedules.InsertAllocation(ctx, tx, alloc); err != nil {
				return nil, fmt.Errorf("insert allocation: %w", err)
			}
			assignmentsCreated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit schedule transaction: %w", err)
	}
	committed = true

	if elapsed := time.Since(startedAt); elapsed > schedulerSlowThreshold {
		s.logger.Warn("schedule generation exceeded target budget",
			zap.Duration("elapsed", elapsed), zap.String("kind", string(kind)))
	}

	return &models.GenerateResult{
		Status:             models.StatusSuccess,
		ScheduleID:         scheduleID,
		StartDate:          start.Format("2006-01-02"),
		EndDate:            end.Format("2006-01-02"),
		ShiftsCreated:      len(candidates),
		AssignmentsCreated: assignmentsCreated,
		RelaxationsApplied: relaxations,
	}, nil
}

// Publish flips is_published true and fans out one notification per
// distinct allocated staff member. Idempotent: a second call reports the
// already-published state without emitting duplicate notifications.
func (s *SchedulerService) Publish(ctx context.Context, scheduleID int) (*models.GenerateResult, error) {
	wasPublished, err := s.schedules.SetPublished(ctx, scheduleID, true)
	if err != nil {
		return nil, fmt.Errorf("publish schedule: %w", err)
	}
	if wasPublished {
		return &models.GenerateResult{Status: models.StatusSuccess, ScheduleID: scheduleID, Reason: "already published"}, nil
	}

	usernames, err := s.schedules.DistinctAllocatedStaff(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("load allocated staff: %w", err)
	}
	if s.notifications != nil {
		for _, username := range usernames {
			s.notifications.Notify(ctx, username, models.NotificationSchedule, "Your schedule has been published.")
		}
	}
	return &models.GenerateResult{Status: models.StatusSuccess, ScheduleID: scheduleID}, nil
}

// Grid returns the schedule record, its shifts, and enriched allocation
// details for a date range, used by GET /schedule/current and the
// dashboard.
func (s *SchedulerService) Grid(ctx context.Context, kind models.StaffKind, start, end time.Time) (*models.Schedule, []models.Shift, []models.AllocationDetail, error) {
	scheduleID := models.FixedScheduleID(models.ScheduleKind(kind))
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if errors.Is(err, sql.ErrNoRows) {
		schedule = &models.Schedule{ID: scheduleID, Kind: models.ScheduleKind(kind), StartDate: start, EndDate: end}
	} else if err != nil {
		return nil, nil, nil, fmt.Errorf("load schedule: %w", err)
	}
	shifts, err := s.schedules.Grid(ctx, scheduleID, start, end)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load grid: %w", err)
	}
	ids := make([]string, len(shifts))
	for i, sh := range shifts {
		ids[i] = sh.ID
	}
	details, err := s.schedules.AllocationsForShifts(ctx, ids)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load grid allocations: %w", err)
	}
	return schedule, shifts, details, nil
}

func (s *SchedulerService) buildGrid(kind models.ScheduleKind, start, end time.Time) ([]shiftCandidate, error) {
	var activeWeekdays []time.Weekday
	var blocks [][2]models.TimeOfDay

	if kind == models.ScheduleKindLab {
		activeWeekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
		blocks = [][2]models.TimeOfDay{
			{models.NewTimeOfDay(8, 0), models.NewTimeOfDay(12, 0)},
			{models.NewTimeOfDay(12, 0), models.NewTimeOfDay(16, 0)},
			{models.NewTimeOfDay(16, 0), models.NewTimeOfDay(20, 0)},
		}
	} else {
		activeWeekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
		for h := 9; h < 17; h++ {
			blocks = append(blocks, [2]models.TimeOfDay{models.NewTimeOfDay(h, 0), models.NewTimeOfDay(h+1, 0)})
		}
	}

	var candidates []shiftCandidate
	for _, weekday := range activeWeekdays {
		rule, err := rrule.NewRRule(rrule.ROption{
			Freq:      rrule.WEEKLY,
			Byweekday: []rrule.Weekday{toRRuleWeekday(weekday)},
			Dtstart:   start,
			Until:     end,
		})
		if err != nil {
			return nil, fmt.Errorf("build recurrence for %s: %w", weekday, err)
		}
		for _, occurrence := range rule.All() {
			for _, block := range blocks {
				candidates = append(candidates, shiftCandidate{
					shift: models.Shift{
						Date:      occurrence,
						StartTime: block[0],
						EndTime:   block[1],
					},
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].shift.Date.Equal(candidates[j].shift.Date) {
			return candidates[i].shift.Date.Before(candidates[j].shift.Date)
		}
		return candidates[i].shift.StartTime.Before(candidates[j].shift.StartTime)
	})
	return candidates, nil
}

func toRRuleWeekday(w time.Weekday) rrule.Weekday {
	switch w {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}

func (s *SchedulerService) eligibleStaffFor(ctx context.Context, kind models.StaffKind) ([]*eligibleStaff, error) {
	caps, err := s.courses.AllCapabilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("load capability matrix: %w", err)
	}
	capsByStaff := make(map[string]map[string]bool)
	for _, c := range caps {
		if capsByStaff[c.AssistantUsername] == nil {
			capsByStaff[c.AssistantUsername] = make(map[string]bool)
		}
		capsByStaff[c.AssistantUsername][c.CourseCode] = true
	}

	var result []*eligibleStaff
	if kind == models.StaffKindLab {
		labs, err := s.pools.ListActiveLab(ctx)
		if err != nil {
			return nil, err
		}
		for _, a := range labs {
			result = append(result, &eligibleStaff{username: a.Username, capabilities: nil})
		}
		return result, nil
	}

	helpdesk, err := s.pools.ListActiveHelpDesk(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range helpdesk {
		caps := capsByStaff[a.Username]
		if len(caps) == 0 {
			continue
		}
		result = append(result, &eligibleStaff{username: a.Username, hoursMinimum: a.HoursMinimum, capabilities: caps})
	}
	return result, nil
}

// assign runs the greedy most-constrained-shift-first placement described
// in the solver design notes: shifts with the fewest eligible candidates
// are filled first, staff below their weekly minimum are preferred, and
// a bounded repair pass tops up shifts still under the minimum floor.
func (s *SchedulerService) assign(ctx context.Context, candidates []shiftCandidate, staff []*eligibleStaff, opts models.GenerateOptions) (map[int][]string, error) {
	for _, st := range staff {
		st.assigned = 0
	}

	var queries []BatchQuery
	for _, c := range candidates {
		for _, st := range staff {
			queries = append(queries, BatchQuery{Username: st.username, Day: c.shift.Weekday(), Hour: c.shift.StartTime.Hour})
		}
	}
	available, err := s.availability.BatchAvailable(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("resolve batch availability: %w", err)
	}

	eligibility := make([][]int, len(candidates))
	for i, c := range candidates {
		day := c.shift.Weekday()
		hour := c.shift.StartTime.Hour
		for idx, st := range staff {
			if available[BatchQuery{Username: st.username, Day: day, Hour: hour}] {
				eligibility[i] = append(eligibility[i], idx)
			}
		}
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return len(eligibility[order[a]]) < len(eligibility[order[b]])
	})

	assignments := make(map[int][]string, len(candidates))
	for _, shiftIdx := range order {
		pool := eligibility[shiftIdx]
		sort.Slice(pool, func(a, b int) bool {
			sa, sb := staff[pool[a]], staff[pool[b]]
			belowA := sa.assigned < sa.hoursMinimum
			belowB := sb.assigned < sb.hoursMinimum
			if belowA != belowB {
				return belowA
			}
			return sa.assigned < sb.assigned
		})

		target := opts.PreferredStaff
		if opts.MaximumStaff != nil && *opts.MaximumStaff < target {
			target = *opts.MaximumStaff
		}

		assigned := 0
		for _, idx := range pool {
			if assigned >= target {
				break
			}
			assignments[shiftIdx] = append(assignments[shiftIdx], staff[idx].username)
			staff[idx].assigned++
			assigned++
		}
	}

	// Bounded repair pass: top up shifts under minimum_staff using any
	// eligible staff not already assigned there, one pass only.
	for shiftIdx, idxs := range eligibility {
		for len(assignments[shiftIdx]) < opts.MinimumStaff {
			added := false
			for _, idx := range idxs {
				username := staff[idx].username
				if containsString(assignments[shiftIdx], username) {
					continue
				}
				assignments[shiftIdx] = append(assignments[shiftIdx], username)
				staff[idx].assigned++
				added = true
				break
			}
			if !added {
				break
			}
		}
	}

	return assignments, nil
}

func satisfiesFloor(assignments map[int][]string, candidates []shiftCandidate, minimum int) bool {
	for i := range candidates {
		if len(assignments[i]) < minimum {
			return false
		}
	}
	return true
}

func containsString(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
