package dto

import "github.com/campus-assist/rostering-api/internal/models"

// CreateRequestPayload is the POST /requests payload staff submit to ask
// for a shift change.
type CreateRequestPayload struct {
	ShiftID     string  `json:"shift_id" binding:"required"`
	Reason      string  `json:"reason" binding:"required"`
	Replacement *string `json:"replacement,omitempty"`
}

// ReviewRequestPayload is the admin-only approve/reject payload.
type ReviewRequestPayload struct {
	Note *string `json:"note,omitempty"`
}

// RequestListQuery captures GET /requests filter parameters.
type RequestListQuery struct {
	Username string               `form:"username"`
	Status   *models.RequestStatus `form:"-"`
	Page     int                  `form:"page"`
	PageSize int                  `form:"page_size"`
}
