package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-assist/rostering-api/internal/dto"
	"github.com/campus-assist/rostering-api/internal/service"
	appErrors "github.com/campus-assist/rostering-api/pkg/errors"
	"github.com/campus-assist/rostering-api/pkg/response"
)

// AttendanceHandler wires the time-tracking endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// ClockIn godoc
// @Summary clock_in: open a time entry for the caller
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.ClockInRequest false "Optional shift id"
// @Success 200 {object} response.Envelope
// @Router /time-tracking/clock-in [post]
func (h *AttendanceHandler) ClockIn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ClockInRequest
	_ = c.ShouldBindJSON(&req)

	entry, err := h.attendance.ClockIn(c.Request.Context(), claims.Username, req.ShiftID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ClockInResponse{TimeEntryID: entry.ID}, nil)
}

// ClockOut godoc
// @Summary clock_out: close the caller's active time entry
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /time-tracking/clock-out [post]
func (h *AttendanceHandler) ClockOut(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	entry, err := h.attendance.ClockOut(c.Request.Context(), claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ClockOutResponse{HoursWorked: entry.DurationHours()}, nil)
}

// MarkMissed godoc
// @Summary mark_missed: record a missed shift
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.MarkMissedRequest true "Shift"
// @Success 200 {object} response.Envelope
// @Router /time-tracking/mark-missed [post]
func (h *AttendanceHandler) MarkMissed(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.MarkMissedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.attendance.MarkMissed(c.Request.Context(), claims.Username, req.ShiftID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.StatusResponse{Status: "success"}, nil)
}

// TodayShift godoc
// @Summary today_shift: the caller's derived shift status for today
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /time-tracking/today [get]
func (h *AttendanceHandler) TodayShift(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	view, err := h.attendance.TodayShift(c.Request.Context(), claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Stats godoc
// @Summary stats: hours worked / absences over standard windows
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /time-tracking/stats [get]
func (h *AttendanceHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.attendance.Stats(c.Request.Context(), claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// History godoc
// @Summary shift_history: the caller's recent time entries
// @Tags Attendance
// @Produce json
// @Param limit query int false "Row limit"
// @Success 200 {object} response.Envelope
// @Router /time-tracking/history [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit := queryInt(c, "limit", 50)
	entries, err := h.attendance.ShiftHistory(c.Request.Context(), claims.Username, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// TimeDistribution godoc
// @Summary time_distribution: hours worked bucketed by weekday
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /time-tracking/distribution [get]
func (h *AttendanceHandler) TimeDistribution(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	dist, err := h.attendance.TimeDistribution(c.Request.Context(), claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dist, nil)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
