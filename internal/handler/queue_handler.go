package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hallpasshq/hallpass-api/internal/service"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
	"github.com/hallpasshq/hallpass-api/pkg/response"
)

// QueueHandler exposes admin queue management endpoints.
type QueueHandler struct {
	service *service.QueueService
}

// NewQueueHandler constructs a queue handler.
func NewQueueHandler(svc *service.QueueService) *QueueHandler {
	return &QueueHandler{service: svc}
}

// List godoc
// @Summary List the waitlist
// @Tags Queue
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/queue [get]
func (h *QueueHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context(), adminTenantID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Remove godoc
// @Summary Remove a student from the waitlist
// @Tags Queue
// @Produce json
// @Security BearerAuth
// @Param studentRef path string true "Student reference"
// @Success 204
// @Router /admin/queue/{studentRef} [delete]
func (h *QueueHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), adminTenantID(c), c.Param("studentRef")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type reorderRequest struct {
	Order []string `json:"order" binding:"required"`
}

// Reorder godoc
// @Summary Reorder the waitlist
// @Tags Queue
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body reorderRequest true "Exact permutation of current queue membership"
// @Success 200 {object} response.Envelope
// @Router /admin/queue/order [put]
func (h *QueueHandler) Reorder(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entries, err := h.service.Reorder(c.Request.Context(), adminTenantID(c), req.Order)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
