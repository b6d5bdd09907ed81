package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-assist/rostering-api/internal/models"
	"github.com/campus-assist/rostering-api/internal/service"
	appErrors "github.com/campus-assist/rostering-api/pkg/errors"
	"github.com/campus-assist/rostering-api/pkg/response"
)

// DashboardHandler wires the single-call volunteer landing page snapshot.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Snapshot godoc
// @Summary Volunteer dashboard: profile + next shift + my shifts + grid
// @Tags Dashboard
// @Produce json
// @Param kind query string true "helpdesk or lab"
// @Success 200 {object} response.Envelope
// @Router /volunteer/dashboard [get]
func (h *DashboardHandler) Snapshot(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	kind := models.StaffKind(c.DefaultQuery("kind", string(models.StaffKindHelpDesk)))
	if !kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "kind must be helpdesk or lab"))
		return
	}

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -int((now.Weekday()+6)%7))
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 14)

	snapshot, err := h.dashboard.Snapshot(c.Request.Context(), claims.Username, kind, start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}
