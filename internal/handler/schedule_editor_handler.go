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

// ScheduleEditorHandler wires the hand-adjustment endpoints.
type ScheduleEditorHandler struct {
	editor *service.ScheduleEditorService
}

// NewScheduleEditorHandler constructs the handler.
func NewScheduleEditorHandler(editor *service.ScheduleEditorService) *ScheduleEditorHandler {
	return &ScheduleEditorHandler{editor: editor}
}

// Save godoc
// @Summary Bulk upsert a schedule's allocations
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.SaveAssignmentsRequest true "Cells to save"
// @Success 200 {object} response.Envelope
// @Router /schedule/save [post]
func (h *ScheduleEditorHandler) Save(c *gin.Context) {
	var req dto.SaveAssignmentsRequest
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

	cells := make([]service.AssignmentCell, 0, len(req.Cells))
	for _, cell := range req.Cells {
		date, err := time.Parse("2006-01-02", cell.Date)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "cell date must be YYYY-MM-DD"))
			return
		}
		startTime, err := parseTimeOfDay(cell.Start)
		if err != nil {
			response.Error(c, err)
			return
		}
		endTime, err := parseTimeOfDay(cell.End)
		if err != nil {
			response.Error(c, err)
			return
		}
		cells = append(cells, service.AssignmentCell{Date: date, Start: startTime, End: endTime, Staff: cell.Staff})
	}

	if err := h.editor.SaveAssignments(c.Request.Context(), req.Kind, start, end, cells); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.StatusResponse{Status: "success"}, nil)
}

// AddStaff godoc
// @Summary Add one staff member to a shift
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.AddStaffRequest true "Allocation"
// @Success 200 {object} response.Envelope
// @Router /schedule/add-staff [post]
func (h *ScheduleEditorHandler) AddStaff(c *gin.Context) {
	var req dto.AddStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.editor.AddAllocation(c.Request.Context(), req.ScheduleID, req.ShiftID, req.Username); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.StatusResponse{Status: "success"}, nil)
}

// RemoveStaff godoc
// @Summary Remove one staff member from a shift
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.RemoveStaffRequest true "Allocation"
// @Success 200 {object} response.Envelope
// @Router /schedule/remove-staff [post]
func (h *ScheduleEditorHandler) RemoveStaff(c *gin.Context) {
	var req dto.RemoveStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.editor.RemoveAllocation(c.Request.Context(), req.ShiftID, req.Username); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.StatusResponse{Status: "success"}, nil)
}

func parseTimeOfDay(raw string) (models.TimeOfDay, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		t, err = time.Parse("15:04:05", raw)
		if err != nil {
			return models.TimeOfDay{}, appErrors.Clone(appErrors.ErrValidation, "time must be HH:MM")
		}
	}
	return models.NewTimeOfDay(t.Hour(), t.Minute()), nil
}
