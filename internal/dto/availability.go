package dto

// DeclareAvailabilityRequest is POST /availability's payload.
type DeclareAvailabilityRequest struct {
	DayOfWeek string `json:"day_of_week" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

// BatchAvailabilityRequest is POST /staff/check-availability/batch's payload.
type BatchAvailabilityRequest struct {
	Probes []AvailabilityProbe `json:"probes" binding:"required,dive"`
}

// AvailabilityProbe is one (staff, day, hour) entry of a batch request.
type AvailabilityProbe struct {
	Username string `json:"username" binding:"required"`
	Day      string `json:"day" binding:"required"`
	Hour     int    `json:"hour"`
}

// AvailabilityResult pairs a probe with its resolved availability.
type AvailabilityResult struct {
	Username      string `json:"username"`
	Day           string `json:"day"`
	Hour          int    `json:"hour"`
	IsAvailable   bool   `json:"is_available"`
}
