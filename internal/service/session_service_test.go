package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
)

type mockHistoryRepo struct {
	sessions map[string]*models.Session
	purged   int64
}

func newMockHistoryRepo() *mockHistoryRepo {
	return &mockHistoryRepo{sessions: map[string]*models.Session{}}
}

func (m *mockHistoryRepo) FindByID(ctx context.Context, id string) (*models.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (m *mockHistoryRepo) End(ctx context.Context, sessionID, endedBy string, now time.Time) (bool, error) {
	session, ok := m.sessions[sessionID]
	if !ok || session.EndTS != nil {
		return false, nil
	}
	session.EndTS = &now
	session.Status = models.SessionCompleted
	session.EndedBy = &endedBy
	return true, nil
}

func (m *mockHistoryRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]models.Session, int, error) {
	var out []models.Session
	for _, session := range m.sessions {
		if session.TenantID == tenantID {
			out = append(out, *session)
		}
	}
	return out, len(out), nil
}

func (m *mockHistoryRepo) PurgeHistory(ctx context.Context, tenantID string) (int64, error) {
	var purged int64
	for id, session := range m.sessions {
		if session.TenantID == tenantID && session.EndTS != nil {
			delete(m.sessions, id)
			purged++
		}
	}
	m.purged = purged
	return purged, nil
}

type mockPromoter struct {
	calls int
}

func (m *mockPromoter) PromoteAfterRelease(ctx context.Context, tenantID string) string {
	m.calls++
	return ""
}

func newSessionFixture() (*SessionService, *mockHistoryRepo, *mockPromoter) {
	repo := newMockHistoryRepo()
	promoter := &mockPromoter{}
	service := NewSessionService(repo, newMockRosterRepo(),
		&mockSettingsProvider{settings: models.DefaultSettings("tenant-1")},
		promoter, &mockInvalidator{}, zap.NewNop())
	return service, repo, promoter
}

func TestEndSessionByAdmin(t *testing.T) {
	service, repo, promoter := newSessionFixture()
	repo.sessions["s1"] = &models.Session{
		ID:         "s1",
		TenantID:   "tenant-1",
		StudentRef: "student-a",
		StartTS:    time.Now().UTC().Add(-5 * time.Minute),
		Status:     models.SessionActive,
	}

	session, err := service.EndSession(context.Background(), "tenant-1", "s1")
	require.NoError(t, err)
	require.NotNil(t, session.EndTS)
	require.NotNil(t, session.EndedBy)
	assert.Equal(t, models.ActorAdmin, *session.EndedBy)
	assert.Equal(t, 1, promoter.calls, "a freed slot triggers the promotion check")
}

func TestEndSessionTwiceConflicts(t *testing.T) {
	service, repo, _ := newSessionFixture()
	now := time.Now().UTC()
	repo.sessions["s1"] = &models.Session{
		ID:       "s1",
		TenantID: "tenant-1",
		StartTS:  now.Add(-10 * time.Minute),
		EndTS:    &now,
		Status:   models.SessionCompleted,
	}

	_, err := service.EndSession(context.Background(), "tenant-1", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnded.Code, appErrors.FromError(err).Code)
}

func TestEndSessionWrongTenant(t *testing.T) {
	service, repo, _ := newSessionFixture()
	repo.sessions["s1"] = &models.Session{ID: "s1", TenantID: "tenant-2", StartTS: time.Now().UTC()}

	_, err := service.EndSession(context.Background(), "tenant-1", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLogsMarkOpenOverdueSessions(t *testing.T) {
	service, repo, _ := newSessionFixture()
	repo.sessions["s1"] = &models.Session{
		ID:         "s1",
		TenantID:   "tenant-1",
		StudentRef: "student-a",
		StartTS:    time.Now().UTC().Add(-30 * time.Minute),
		Status:     models.SessionActive,
	}

	logs, pagination, err := service.Logs(context.Background(), "tenant-1", 1, 50)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.SessionOverdue, logs[0].Status, "open session past threshold reads as overdue")
	assert.InDelta(t, 30, logs[0].DurationMinutes, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestPurgeHistoryKeepsActiveSessions(t *testing.T) {
	service, repo, _ := newSessionFixture()
	now := time.Now().UTC()
	repo.sessions["done"] = &models.Session{ID: "done", TenantID: "tenant-1", StartTS: now.Add(-time.Hour), EndTS: &now}
	repo.sessions["open"] = &models.Session{ID: "open", TenantID: "tenant-1", StartTS: now.Add(-time.Minute)}

	purged, err := service.PurgeHistory(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	_, stillThere := repo.sessions["open"]
	assert.True(t, stillThere)
}

func TestExportCSV(t *testing.T) {
	service, repo, _ := newSessionFixture()
	now := time.Now().UTC()
	repo.sessions["s1"] = &models.Session{
		ID:         "s1",
		TenantID:   "tenant-1",
		StudentRef: "student-a",
		StartTS:    now.Add(-20 * time.Minute),
		EndTS:      &now,
		Status:     models.SessionCompleted,
	}

	artifact, err := service.Export(context.Background(), "tenant-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", artifact.ContentType)
	assert.Contains(t, string(artifact.Bytes), "student-a")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	service, _, _ := newSessionFixture()

	_, err := service.Export(context.Background(), "tenant-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
