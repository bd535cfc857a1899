package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hallpasshq/hallpass-api/internal/service"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
	"github.com/hallpasshq/hallpass-api/pkg/response"
)

// SettingsHandler exposes tenant settings endpoints.
type SettingsHandler struct {
	service *service.SettingsService
}

// NewSettingsHandler constructs a settings handler.
func NewSettingsHandler(svc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// Get godoc
// @Summary Get tenant settings
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.service.Get(c.Request.Context(), adminTenantID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Update godoc
// @Summary Update tenant settings
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.SettingsUpdate true "Partial settings"
// @Success 200 {object} response.Envelope
// @Router /admin/settings [patch]
func (h *SettingsHandler) Update(c *gin.Context) {
	var update service.SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	settings, err := h.service.Update(c.Request.Context(), adminTenantID(c), update)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

type suspendRequest struct {
	Suspended *bool `json:"suspended" binding:"required"`
}

// Suspend godoc
// @Summary Toggle manual suspension
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body suspendRequest true "Suspension state"
// @Success 200 {object} response.Envelope
// @Router /admin/suspend [post]
func (h *SettingsHandler) Suspend(c *gin.Context) {
	var req suspendRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Suspended == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "suspended flag is required"))
		return
	}
	settings, err := h.service.SetSuspended(c.Request.Context(), adminTenantID(c), *req.Suspended)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}
