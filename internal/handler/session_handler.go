package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hallpasshq/hallpass-api/internal/service"
	"github.com/hallpasshq/hallpass-api/pkg/response"
)

// SessionHandler exposes admin session history and override endpoints.
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// Logs godoc
// @Summary List pass history
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/logs [get]
func (h *SessionHandler) Logs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, pagination, err := h.service.Logs(c.Request.Context(), adminTenantID(c), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, &pagination)
}

// End godoc
// @Summary Force-end a session
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /admin/sessions/{id}/end [post]
func (h *SessionHandler) End(c *gin.Context) {
	session, err := h.service.EndSession(c.Request.Context(), adminTenantID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Purge godoc
// @Summary Purge ended sessions
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/logs [delete]
func (h *SessionHandler) Purge(c *gin.Context) {
	purged, err := h.service.PurgeHistory(c.Request.Context(), adminTenantID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"purged": purged}, nil)
}

// Export godoc
// @Summary Export pass history
// @Tags Sessions
// @Produce text/csv
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /admin/logs/export [get]
func (h *SessionHandler) Export(c *gin.Context) {
	artifact, err := h.service.Export(c.Request.Context(), adminTenantID(c), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("pass-history-%s.%s", time.Now().UTC().Format("2006-01-02"), artifact.Extension)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Bytes)
}
