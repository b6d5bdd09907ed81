package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-assist/rostering-api/internal/dto"
	"github.com/campus-assist/rostering-api/internal/models"
	"github.com/campus-assist/rostering-api/internal/service"
	appErrors "github.com/campus-assist/rostering-api/pkg/errors"
	"github.com/campus-assist/rostering-api/pkg/response"
)

// AvailabilityHandler wires the availability-resolver endpoints.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// List godoc
// @Summary List declared availability windows for the caller
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	windows, err := h.availability.ListForUser(c.Request.Context(), claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// Declare godoc
// @Summary Declare a recurring weekly availability window
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.DeclareAvailabilityRequest true "Window"
// @Success 201 {object} response.Envelope
// @Router /availability [post]
func (h *AvailabilityHandler) Declare(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DeclareAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	day, ok := models.ParseDayOfWeek(req.DayOfWeek)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown day_of_week"))
		return
	}
	start, err := parseTimeOfDay(req.StartTime)
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := parseTimeOfDay(req.EndTime)
	if err != nil {
		response.Error(c, err)
		return
	}

	window := &models.Availability{Username: claims.Username, DayOfWeek: day, StartTime: start, EndTime: end}
	if err := h.availability.Declare(c.Request.Context(), window); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, window)
}

// Withdraw godoc
// @Summary Withdraw a declared availability window
// @Tags Availability
// @Produce json
// @Param id path string true "Window id"
// @Success 204 {object} response.Envelope
// @Router /availability/{id} [delete]
func (h *AvailabilityHandler) Withdraw(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.availability.Withdraw(c.Request.Context(), claims.Username, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListAvailable godoc
// @Summary list_available: staff free at a given day/hour
// @Tags Availability
// @Produce json
// @Param kind query string true "helpdesk or lab"
// @Param day query string true "Monday..Sunday"
// @Param hour query int true "0-23"
// @Success 200 {object} response.Envelope
// @Router /staff/available [get]
func (h *AvailabilityHandler) ListAvailable(c *gin.Context) {
	kind := models.StaffKind(c.Query("kind"))
	if !kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "kind must be helpdesk or lab"))
		return
	}
	day, ok := models.ParseDayOfWeek(c.Query("day"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown day"))
		return
	}
	hour, err := strconv.Atoi(c.Query("hour"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "hour must be an integer"))
		return
	}

	staff, err := h.availability.ListAvailable(c.Request.Context(), kind, day, hour)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}

// BatchAvailable godoc
// @Summary batch_available: resolve many (staff,day,hour) probes at once
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.BatchAvailabilityRequest true "Probes"
// @Success 200 {object} response.Envelope
// @Router /staff/check-availability/batch [post]
func (h *AvailabilityHandler) BatchAvailable(c *gin.Context) {
	var req dto.BatchAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	queries := make([]service.BatchQuery, 0, len(req.Probes))
	dayByQuery := make(map[service.BatchQuery]string, len(req.Probes))
	for _, p := range req.Probes {
		day, ok := models.ParseDayOfWeek(p.Day)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown day in probe: "+p.Day))
			return
		}
		q := service.BatchQuery{Username: p.Username, Day: day, Hour: p.Hour}
		queries = append(queries, q)
		dayByQuery[q] = p.Day
	}

	results, err := h.availability.BatchAvailable(c.Request.Context(), queries)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.AvailabilityResult, 0, len(queries))
	for _, q := range queries {
		out = append(out, dto.AvailabilityResult{
			Username:    q.Username,
			Day:         dayByQuery[q],
			Hour:        q.Hour,
			IsAvailable: results[q],
		})
	}
	response.JSON(c, http.StatusOK, out, nil)
}
