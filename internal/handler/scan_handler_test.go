package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallpasshq/hallpass-api/internal/middleware"
	"github.com/hallpasshq/hallpass-api/internal/models"
)

type fakeAdmission struct {
	result  *models.ScanResult
	err     error
	lastRef string
}

func (f *fakeAdmission) HandleScan(_ context.Context, tenantID, studentRef string) (*models.ScanResult, error) {
	f.lastRef = studentRef
	return f.result, f.err
}

type fakeStatus struct {
	payload *models.StatusPayload
	err     error
	lastRef string
}

func (f *fakeStatus) Snapshot(_ context.Context, tenantID, studentRef string, now time.Time) (*models.StatusPayload, error) {
	f.lastRef = studentRef
	return f.payload, f.err
}

func kioskContext(t *testing.T, method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
		c.Request = httptest.NewRequest(method, target, reader)
		c.Request.Header.Set("Content-Type", "application/json")
	} else {
		c.Request = httptest.NewRequest(method, target, nil)
	}
	c.Set(middleware.ContextTenantKey, &models.Tenant{ID: "tenant-1", RoomName: "Room 204"})
	return c, rec
}

func TestScanHandlerResolvesOutcome(t *testing.T) {
	admission := &fakeAdmission{result: &models.ScanResult{Outcome: models.OutcomeStarted, Message: "pass started"}}
	handler := NewScanHandler(admission, &fakeStatus{})

	c, rec := kioskContext(t, http.MethodPost, "/kiosk/scan", `{"code":"  student-a  "}`)
	handler.Scan(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student-a", admission.lastRef, "scanned code is trimmed")

	var envelope struct {
		Data models.ScanResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, models.OutcomeStarted, envelope.Data.Outcome)
}

func TestScanHandlerRejectsMissingCode(t *testing.T) {
	handler := NewScanHandler(&fakeAdmission{}, &fakeStatus{})

	c, rec := kioskContext(t, http.MethodPost, "/kiosk/scan", `{}`)
	handler.Scan(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanHandlerRequiresTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScanHandler(&fakeAdmission{}, &fakeStatus{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/kiosk/scan", strings.NewReader(`{"code":"student-a"}`))

	handler.Scan(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusHandlerPassesStudentRef(t *testing.T) {
	status := &fakeStatus{payload: &models.StatusPayload{RoomName: "Room 204", IsStudentQueued: true}}
	handler := NewScanHandler(&fakeAdmission{}, status)

	c, rec := kioskContext(t, http.MethodGet, "/kiosk/status?student=student-b", "")
	handler.Status(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student-b", status.lastRef)

	var envelope struct {
		Data models.StatusPayload `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Room 204", envelope.Data.RoomName)
	assert.True(t, envelope.Data.IsStudentQueued)
}
