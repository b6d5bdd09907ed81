package models

import "time"

// ScheduleKind distinguishes the two rostered pools.
type ScheduleKind string

const (
	ScheduleKindHelpDesk ScheduleKind = "helpdesk"
	ScheduleKindLab      ScheduleKind = "lab"
)

// Fixed primary-schedule ids: the source's implicit 1=helpdesk, 2=lab
// convention, now a named constant instead of a scattered magic number.
const (
	PrimaryScheduleHelpDesk = 1
	PrimaryScheduleLab      = 2
)

// FixedScheduleID returns the primary schedule id for a pool.
func FixedScheduleID(kind ScheduleKind) int {
	if kind == ScheduleKindLab {
		return PrimaryScheduleLab
	}
	return PrimaryScheduleHelpDesk
}

// Schedule is the primary, fixed-id container for a date range's roster.
type Schedule struct {
	ID          int          `db:"id" json:"id"`
	Kind        ScheduleKind `db:"kind" json:"kind"`
	StartDate   time.Time    `db:"start_date" json:"start_date"`
	EndDate     time.Time    `db:"end_date" json:"end_date"`
	GeneratedAt time.Time    `db:"generated_at" json:"generated_at"`
	IsPublished bool         `db:"is_published" json:"is_published"`
}

// GenerateOptions carries the scheduler's tunable knobs (spec.md §4.3).
type GenerateOptions struct {
	MinimumStaff         int
	PreferredStaff       int
	MaximumStaff         *int
	BreakDurationMinutes int
	MaxConsecutiveHours  int
	DemandOverrides      map[string]CourseDemandOverride
}

// CourseDemandOverride replaces the default tutors_required/weight for a
// specific course code.
type CourseDemandOverride struct {
	TutorsRequired int
	Weight         int
}

// DefaultGenerateOptions returns spec.md's stated defaults.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		MinimumStaff:   2,
		PreferredStaff: 2,
	}
}

// GenerateResult is the scheduler's result payload.
type GenerateResult struct {
	Status             string   `json:"status"`
	ScheduleID          int      `json:"schedule_id"`
	StartDate           string   `json:"start_date"`
	EndDate             string   `json:"end_date"`
	ShiftsCreated       int      `json:"shifts_created"`
	AssignmentsCreated  int      `json:"assignments_created"`
	RelaxationsApplied  []string `json:"relaxations_applied"`
	Reason              string   `json:"reason,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Relaxation reasons recorded in GenerateResult.RelaxationsApplied.
const (
	RelaxationWorkloadFloorDropped = "workload_floor_dropped"
	RelaxationMaximumDropped       = "maximum_staff_dropped"
	RelaxationMinimumFloorReduced  = "minimum_floor_reduced_to_1"
)
