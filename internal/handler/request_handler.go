package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-assist/rostering-api/internal/dto"
	"github.com/campus-assist/rostering-api/internal/models"
	"github.com/campus-assist/rostering-api/internal/service"
	appErrors "github.com/campus-assist/rostering-api/pkg/errors"
	"github.com/campus-assist/rostering-api/pkg/response"
)

// RequestHandler wires the shift-change request lifecycle endpoints.
type RequestHandler struct {
	requests *service.RequestService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// Submit godoc
// @Summary File a shift-change request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestPayload true "Request"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.requests.Submit(c.Request.Context(), claims.Username, req.ShiftID, req.Reason, req.Replacement)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List shift-change requests
// @Tags Requests
// @Produce json
// @Param username query string false "Scope to one staff member"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	username := c.Query("username")
	if claims.Role != models.RoleAdmin {
		username = claims.Username
	}
	filter := models.RequestFilter{
		Username: username,
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	results, total, err := h.requests.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total})
}

// Approve godoc
// @Summary Approve a pending request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param payload body dto.ReviewRequestPayload false "Note"
// @Success 204 {object} response.Envelope
// @Router /requests/{id}/approve [post]
func (h *RequestHandler) Approve(c *gin.Context) {
	h.review(c, true)
}

// Reject godoc
// @Summary Reject a pending request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param payload body dto.ReviewRequestPayload false "Note"
// @Success 204 {object} response.Envelope
// @Router /requests/{id}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
	h.review(c, false)
}

func (h *RequestHandler) review(c *gin.Context, approve bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload dto.ReviewRequestPayload
	_ = c.ShouldBindJSON(&payload)

	id := c.Param("id")
	var err error
	if approve {
		err = h.requests.Approve(c.Request.Context(), id, claims.Username, payload.Note)
	} else {
		err = h.requests.Reject(c.Request.Context(), id, claims.Username, payload.Note)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Cancel godoc
// @Summary Cancel the caller's own pending request
// @Tags Requests
// @Produce json
// @Param id path string true "Request id"
// @Success 204 {object} response.Envelope
// @Router /requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.requests.Cancel(c.Request.Context(), c.Param("id"), claims.Username); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
