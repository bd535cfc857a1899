package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
	"github.com/hallpasshq/hallpass-api/pkg/response"
)

type admissionResolver interface {
	HandleScan(ctx context.Context, tenantID, studentRef string) (*models.ScanResult, error)
}

type statusProvider interface {
	Snapshot(ctx context.Context, tenantID, studentRef string, now time.Time) (*models.StatusPayload, error)
}

// ScanHandler exposes the kiosk surface: scan events and status polling.
type ScanHandler struct {
	admission admissionResolver
	status    statusProvider
}

// NewScanHandler constructs a scan handler.
func NewScanHandler(admission admissionResolver, status statusProvider) *ScanHandler {
	return &ScanHandler{admission: admission, status: status}
}

type scanRequest struct {
	Code string `json:"code" binding:"required"`
}

// Scan godoc
// @Summary Resolve a kiosk scan
// @Tags Kiosk
// @Accept json
// @Produce json
// @Param X-Kiosk-Token header string true "Kiosk token"
// @Param payload body scanRequest true "Scanned student reference"
// @Success 200 {object} response.Envelope
// @Router /kiosk/scan [post]
func (h *ScanHandler) Scan(c *gin.Context) {
	tenant := tenantFromContext(c)
	if tenant == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.admission.HandleScan(c.Request.Context(), tenant.ID, strings.TrimSpace(req.Code))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Status godoc
// @Summary Poll room status
// @Tags Kiosk
// @Produce json
// @Param X-Kiosk-Token header string true "Kiosk token"
// @Param student query string false "Student reference for per-student flags"
// @Success 200 {object} response.Envelope
// @Router /kiosk/status [get]
func (h *ScanHandler) Status(c *gin.Context) {
	tenant := tenantFromContext(c)
	if tenant == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	studentRef := strings.TrimSpace(c.Query("student"))
	payload, err := h.status.Snapshot(c.Request.Context(), tenant.ID, studentRef, time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil)
}
