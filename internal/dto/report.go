package dto

import "github.com/campus-assist/rostering-api/internal/models"

// ReportRequest captures POST /reports/generate payload.
type ReportRequest struct {
	Type       models.ReportType   `json:"type" binding:"required"`
	ScheduleID int                 `json:"scheduleId,omitempty"`
	Username   string              `json:"username,omitempty"`
	StartDate  string              `json:"startDate" binding:"required"`
	EndDate    string              `json:"endDate" binding:"required"`
	Format     models.ReportFormat `json:"format" binding:"required"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
