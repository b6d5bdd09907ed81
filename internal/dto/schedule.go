package dto

import "github.com/campus-assist/rostering-api/internal/models"

// GenerateRequest is POST /schedule/generate's payload.
type GenerateRequest struct {
	Kind                 models.StaffKind                          `json:"kind" binding:"required"`
	StartDate            string                                     `json:"start_date" binding:"required"`
	EndDate              string                                     `json:"end_date" binding:"required"`
	MinimumStaff         int                                        `json:"minimum_staff,omitempty"`
	PreferredStaff       int                                        `json:"preferred_staff,omitempty"`
	MaximumStaff         *int                                       `json:"maximum_staff,omitempty"`
	DemandOverrides      map[string]models.CourseDemandOverride     `json:"demand_overrides,omitempty"`
}

// PublishResponse is the success shape of POST /schedule/{id}/publish.
type PublishResponse struct {
	Status string `json:"status"`
}

// AssignmentCellRequest is one grid cell of POST /schedule/save's payload.
type AssignmentCellRequest struct {
	Date  string   `json:"date" binding:"required"`
	Start string   `json:"start" binding:"required"`
	End   string   `json:"end" binding:"required"`
	Staff []string `json:"staff"`
}

// SaveAssignmentsRequest is POST /schedule/save's payload.
type SaveAssignmentsRequest struct {
	Kind      models.StaffKind        `json:"kind" binding:"required"`
	StartDate string                  `json:"start_date" binding:"required"`
	EndDate   string                  `json:"end_date" binding:"required"`
	Cells     []AssignmentCellRequest `json:"cells"`
}

// RemoveStaffRequest is POST /schedule/remove-staff's payload.
type RemoveStaffRequest struct {
	ShiftID  string `json:"shift_id" binding:"required"`
	Username string `json:"username" binding:"required"`
}

// AddStaffRequest is the payload for manually adding one allocation.
type AddStaffRequest struct {
	ScheduleID int    `json:"schedule_id" binding:"required"`
	ShiftID    string `json:"shift_id" binding:"required"`
	Username   string `json:"username" binding:"required"`
}

// StatusResponse is the generic {status} success shape spec.md §6 uses for
// several mutation endpoints.
type StatusResponse struct {
	Status string `json:"status"`
}

// ScheduleDay groups a grid's shifts by calendar day, matching spec.md §6's
// schedule grid shape.
type ScheduleDay struct {
	Day     string            `json:"day"`
	DayCode int               `json:"day_code"`
	Date    string            `json:"date"`
	Shifts  []ScheduleShift   `json:"shifts"`
}

// ScheduleShift is one grid cell rendered for the client.
type ScheduleShift struct {
	ShiftID    string            `json:"shift_id"`
	Time       string            `json:"time"`
	Hour       int               `json:"hour"`
	Date       string            `json:"date"`
	Assistants []ScheduleStaffRef `json:"assistants"`
}

// ScheduleStaffRef is the minimal staff reference the grid embeds.
type ScheduleStaffRef struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// ScheduleGridResponse is GET /schedule/current's success shape.
type ScheduleGridResponse struct {
	ScheduleID  int           `json:"schedule_id"`
	DateRange   [2]string     `json:"date_range"`
	IsPublished bool          `json:"is_published"`
	Kind        models.StaffKind `json:"kind"`
	Days        []ScheduleDay `json:"days"`
}
