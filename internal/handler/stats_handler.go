package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hallpasshq/hallpass-api/internal/service"
	"github.com/hallpasshq/hallpass-api/pkg/response"
)

// StatsHandler exposes the admin dashboard and overdue controls.
type StatsHandler struct {
	stats   *service.StatsService
	overdue *service.OverdueService
}

// NewStatsHandler constructs a stats handler.
func NewStatsHandler(stats *service.StatsService, overdue *service.OverdueService) *StatsHandler {
	return &StatsHandler{stats: stats, overdue: overdue}
}

// Dashboard godoc
// @Summary Dashboard summary
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *StatsHandler) Dashboard(c *gin.Context) {
	stats, err := h.stats.Dashboard(c.Request.Context(), adminTenantID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// BanOverdue godoc
// @Summary Ban every currently overdue student
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/overdue/ban-all [post]
func (h *StatsHandler) BanOverdue(c *gin.Context) {
	banned, err := h.overdue.BanAllOverdue(c.Request.Context(), adminTenantID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"banned": banned}, nil)
}
