package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hallpasshq/hallpass-api/internal/service"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
	"github.com/hallpasshq/hallpass-api/pkg/response"
)

// ScheduleHandler exposes schedule rule CRUD and availability checks.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedule rules
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	rules, err := h.service.List(c.Request.Context(), adminTenantID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// Create godoc
// @Summary Create a schedule rule
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.ScheduleRuleInput true "Rule payload"
// @Success 201 {object} response.Envelope
// @Router /admin/schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var input service.ScheduleRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.service.Create(c.Request.Context(), adminTenantID(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// Update godoc
// @Summary Update a schedule rule
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Rule ID"
// @Param payload body service.ScheduleRuleInput true "Rule payload"
// @Success 200 {object} response.Envelope
// @Router /admin/schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var input service.ScheduleRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.service.Update(c.Request.Context(), adminTenantID(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Delete godoc
// @Summary Delete a schedule rule
// @Tags Schedule
// @Security BearerAuth
// @Param id path string true "Rule ID"
// @Success 204
// @Router /admin/schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), adminTenantID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Availability godoc
// @Summary Evaluate current availability
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/availability [get]
func (h *ScheduleHandler) Availability(c *gin.Context) {
	availability, err := h.service.Availability(c.Request.Context(), adminTenantID(c), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}
