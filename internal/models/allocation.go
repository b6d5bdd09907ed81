package models

import "time"

// Allocation asserts that a specific staff member is scheduled to work a
// specific Shift. Uniqueness on (shift, staff) is a global invariant.
type Allocation struct {
	ID         string    `db:"id" json:"id"`
	ScheduleID int       `db:"schedule_id" json:"schedule_id"`
	ShiftID    string    `db:"shift_id" json:"shift_id"`
	Username   string    `db:"username" json:"username"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AllocationDetail enriches an allocation with shift and staff metadata for
// the schedule grid view.
type AllocationDetail struct {
	Allocation
	StaffName string    `db:"staff_name" json:"staff_name"`
	Date      time.Time `db:"date" json:"date"`
	StartTime TimeOfDay `db:"start_time" json:"start_time"`
	EndTime   TimeOfDay `db:"end_time" json:"end_time"`
}
