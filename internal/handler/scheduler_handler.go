package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-assist/rostering-api/internal/dto"
	"github.com/campus-assist/rostering-api/internal/models"
	"github.com/campus-assist/rostering-api/internal/service"
	appErrors "github.com/campus-assist/rostering-api/pkg/errors"
	"github.com/campus-assist/rostering-api/pkg/response"
)

// SchedulerHandler wires the grid-building and solver endpoints.
type SchedulerHandler struct {
	scheduler *service.SchedulerService
}

// NewSchedulerHandler constructs the handler.
func NewSchedulerHandler(scheduler *service.SchedulerService) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler}
}

// CurrentSchedule godoc
// @Summary Read the current schedule grid
// @Tags Schedule
// @Produce json
// @Param kind query string true "helpdesk or lab"
// @Param start_date query string true "YYYY-MM-DD"
// @Param end_date query string true "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /schedule/current [get]
func (h *SchedulerHandler) CurrentSchedule(c *gin.Context) {
	kind := models.StaffKind(c.Query("kind"))
	if !kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "kind must be helpdesk or lab"))
		return
	}
	start, end, err := parseDateRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	schedule, shifts, allocations, err := h.scheduler.Grid(c.Request.Context(), kind, start, end)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, buildScheduleGridResponse(kind, start, end, schedule, shifts, allocations), nil)
}

// Generate godoc
// @Summary Run the scheduler over a date range
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequest true "Generate options"
// @Success 200 {object} response.Envelope
// @Router /schedule/generate [post]
func (h *SchedulerHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if !req.Kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "kind must be helpdesk or lab"))
		return
	}
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	opts := models.DefaultGenerateOptions()
	if req.MinimumStaff > 0 {
		opts.MinimumStaff = req.MinimumStaff
	}
	if req.PreferredStaff > 0 {
		opts.PreferredStaff = req.PreferredStaff
	}
	opts.MaximumStaff = req.MaximumStaff
	opts.DemandOverrides = req.DemandOverrides

	result, err := h.scheduler.Generate(c.Request.Context(), req.Kind, start, end, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Publish godoc
// @Summary Publish a generated schedule
// @Tags Schedule
// @Produce json
// @Param id path int true "Schedule id"
// @Success 200 {object} response.Envelope
// @Router /schedule/{id}/publish [post]
func (h *SchedulerHandler) Publish(c *gin.Context) {
	id, err := pathInt(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.scheduler.Publish(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func parseDateRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}
	return start, end, nil
}

func buildScheduleGridResponse(kind models.StaffKind, start, end time.Time, schedule *models.Schedule, shifts []models.Shift, allocations []models.AllocationDetail) dto.ScheduleGridResponse {
	byShift := make(map[string][]dto.ScheduleStaffRef)
	for _, a := range allocations {
		byShift[a.ShiftID] = append(byShift[a.ShiftID], dto.ScheduleStaffRef{Username: a.Username, Name: a.StaffName})
	}

	byDay := make(map[string]*dto.ScheduleDay)
	order := make([]string, 0)
	for _, sh := range shifts {
		dateKey := sh.Date.Format("2006-01-02")
		day, ok := byDay[dateKey]
		if !ok {
			day = &dto.ScheduleDay{
				Day:     sh.Weekday().String(),
				DayCode: int(sh.Weekday()),
				Date:    dateKey,
			}
			byDay[dateKey] = day
			order = append(order, dateKey)
		}
		day.Shifts = append(day.Shifts, dto.ScheduleShift{
			ShiftID:    sh.ID,
			Time:       sh.StartTime.String(),
			Hour:       sh.StartTime.Hour,
			Date:       dateKey,
			Assistants: byShift[sh.ID],
		})
	}

	days := make([]dto.ScheduleDay, 0, len(order))
	for _, key := range order {
		days = append(days, *byDay[key])
	}

	return dto.ScheduleGridResponse{
		ScheduleID:  schedule.ID,
		DateRange:   [2]string{start.Format("2006-01-02"), end.Format("2006-01-02")},
		IsPublished: schedule.IsPublished,
		Kind:        kind,
		Days:        days,
	}
}
