package dto

// ClockInRequest is POST /time-tracking/clock-in's payload. ShiftID is
// optional; when empty the service resolves today's shift for the caller.
type ClockInRequest struct {
	ShiftID string `json:"shift_id,omitempty"`
}

// ClockInResponse is POST /time-tracking/clock-in's success shape.
type ClockInResponse struct {
	TimeEntryID string `json:"time_entry_id"`
}

// ClockOutResponse is POST /time-tracking/clock-out's success shape.
type ClockOutResponse struct {
	HoursWorked float64 `json:"hours_worked"`
}

// MarkMissedRequest is the payload for recording a missed shift.
type MarkMissedRequest struct {
	ShiftID string `json:"shift_id" binding:"required"`
}
