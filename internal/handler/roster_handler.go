package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hallpasshq/hallpass-api/internal/service"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
	"github.com/hallpasshq/hallpass-api/pkg/response"
)

// RosterHandler exposes the roster directory and ban controls.
type RosterHandler struct {
	service *service.RosterService
}

// NewRosterHandler constructs a roster handler.
func NewRosterHandler(svc *service.RosterService) *RosterHandler {
	return &RosterHandler{service: svc}
}

// List godoc
// @Summary List the roster
// @Tags Roster
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /admin/roster [get]
func (h *RosterHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "500"))
	entries, err := h.service.List(c.Request.Context(), adminTenantID(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

type banRequest struct {
	Banned *bool `json:"banned" binding:"required"`
}

// SetBan godoc
// @Summary Ban or unban a student
// @Tags Roster
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentRef path string true "Student reference"
// @Param payload body banRequest true "Ban state"
// @Success 204
// @Router /admin/roster/{studentRef}/ban [post]
func (h *RosterHandler) SetBan(c *gin.Context) {
	var req banRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Banned == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "banned flag is required"))
		return
	}
	if err := h.service.SetBanned(c.Request.Context(), adminTenantID(c), c.Param("studentRef"), *req.Banned); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
