package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
)

type mockSettingsRepo struct {
	stored *models.TenantSettings
}

func (m *mockSettingsRepo) GetSettings(ctx context.Context, tenantID string) (*models.TenantSettings, error) {
	if m.stored == nil {
		return nil, sql.ErrNoRows
	}
	return m.stored, nil
}

func (m *mockSettingsRepo) UpsertSettings(ctx context.Context, settings *models.TenantSettings) error {
	copied := *settings
	m.stored = &copied
	return nil
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func TestSettingsGetDefaults(t *testing.T) {
	service := NewSettingsService(&mockSettingsRepo{}, nil, nil, zap.NewNop())

	settings, err := service.Get(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 1, settings.Capacity)
	assert.Equal(t, 10, settings.OverdueMinutes)
	assert.False(t, settings.EnableQueue)
}

func TestSettingsUpdatePartial(t *testing.T) {
	repo := &mockSettingsRepo{}
	status := &mockInvalidator{}
	service := NewSettingsService(repo, status, nil, zap.NewNop())

	settings, err := service.Update(context.Background(), "tenant-1", SettingsUpdate{
		Capacity:    intPtr(3),
		EnableQueue: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, settings.Capacity)
	assert.True(t, settings.EnableQueue)
	assert.Equal(t, 10, settings.OverdueMinutes, "unspecified fields keep defaults")
	assert.Equal(t, 1, status.calls)
	require.NotNil(t, repo.stored)
}

func TestSettingsUpdateRejectsBadCapacity(t *testing.T) {
	service := NewSettingsService(&mockSettingsRepo{}, nil, nil, zap.NewNop())

	_, err := service.Update(context.Background(), "tenant-1", SettingsUpdate{Capacity: intPtr(0)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = service.Update(context.Background(), "tenant-1", SettingsUpdate{Capacity: intPtr(99)})
	assert.Error(t, err)
}

func TestSettingsUpdateRejectsUnknownTimezone(t *testing.T) {
	service := NewSettingsService(&mockSettingsRepo{}, nil, nil, zap.NewNop())

	_, err := service.Update(context.Background(), "tenant-1", SettingsUpdate{Timezone: strPtr("Not/AZone")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSettingsUpdateScheduleNeedsTimezone(t *testing.T) {
	service := NewSettingsService(&mockSettingsRepo{}, nil, nil, zap.NewNop())

	_, err := service.Update(context.Background(), "tenant-1", SettingsUpdate{ScheduleEnabled: boolPtr(true)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleMisconfigured.Code, appErrors.FromError(err).Code)

	settings, err := service.Update(context.Background(), "tenant-1", SettingsUpdate{
		ScheduleEnabled: boolPtr(true),
		Timezone:        strPtr("America/Chicago"),
	})
	require.NoError(t, err)
	assert.True(t, settings.ScheduleEnabled)
	assert.Equal(t, "America/Chicago", settings.Timezone)
}

func TestSettingsSetSuspended(t *testing.T) {
	repo := &mockSettingsRepo{}
	status := &mockInvalidator{}
	service := NewSettingsService(repo, status, nil, zap.NewNop())

	settings, err := service.SetSuspended(context.Background(), "tenant-1", true)
	require.NoError(t, err)
	assert.True(t, settings.Suspended)
	assert.Equal(t, 1, status.calls)

	settings, err = service.SetSuspended(context.Background(), "tenant-1", false)
	require.NoError(t, err)
	assert.False(t, settings.Suspended)
}
