package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
)

type settingsTenantRepository interface {
	GetSettings(ctx context.Context, tenantID string) (*models.TenantSettings, error)
	UpsertSettings(ctx context.Context, settings *models.TenantSettings) error
}

// statusInvalidator evicts a tenant's cached status payload after a state
// change. Implemented by StatusService.
type statusInvalidator interface {
	Invalidate(ctx context.Context, tenantID string)
}

// SettingsUpdate is a partial settings mutation; nil fields stay unchanged.
type SettingsUpdate struct {
	Capacity                 *int    `json:"capacity" validate:"omitempty,min=1,max=50"`
	OverdueMinutes           *int    `json:"overdue_minutes" validate:"omitempty,min=1,max=240"`
	EnableQueue              *bool   `json:"enable_queue"`
	AutoPromoteQueue         *bool   `json:"auto_promote_queue"`
	AutoBanOverdue           *bool   `json:"auto_ban_overdue"`
	ScheduleEnabled          *bool   `json:"schedule_enabled"`
	Timezone                 *string `json:"timezone"`
	AllowQueueWhileSuspended *bool   `json:"allow_queue_while_suspended"`
}

// SettingsService manages typed per-tenant configuration.
type SettingsService struct {
	repo    settingsTenantRepository
	status  statusInvalidator
	logger  *zap.Logger
	metrics *MetricsService
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo settingsTenantRepository, status statusInvalidator, metrics *MetricsService, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, status: status, metrics: metrics, logger: logger}
}

// Get returns the tenant's settings, falling back to defaults for tenants
// that have never saved any.
func (s *SettingsService) Get(ctx context.Context, tenantID string) (models.TenantSettings, error) {
	settings, err := s.repo.GetSettings(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultSettings(tenantID), nil
		}
		return models.TenantSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return *settings, nil
}

// Update applies a partial settings mutation and persists the full row.
// Unknown or out-of-range values are rejected before anything is written.
func (s *SettingsService) Update(ctx context.Context, tenantID string, update SettingsUpdate) (models.TenantSettings, error) {
	settings, err := s.Get(ctx, tenantID)
	if err != nil {
		return models.TenantSettings{}, err
	}

	if update.Capacity != nil {
		if *update.Capacity < 1 || *update.Capacity > 50 {
			return models.TenantSettings{}, appErrors.Clone(appErrors.ErrValidation, "capacity must be between 1 and 50")
		}
		settings.Capacity = *update.Capacity
	}
	if update.OverdueMinutes != nil {
		if *update.OverdueMinutes < 1 || *update.OverdueMinutes > 240 {
			return models.TenantSettings{}, appErrors.Clone(appErrors.ErrValidation, "overdue_minutes must be between 1 and 240")
		}
		settings.OverdueMinutes = *update.OverdueMinutes
	}
	if update.EnableQueue != nil {
		settings.EnableQueue = *update.EnableQueue
	}
	if update.AutoPromoteQueue != nil {
		settings.AutoPromoteQueue = *update.AutoPromoteQueue
	}
	if update.AutoBanOverdue != nil {
		settings.AutoBanOverdue = *update.AutoBanOverdue
	}
	if update.ScheduleEnabled != nil {
		settings.ScheduleEnabled = *update.ScheduleEnabled
	}
	if update.Timezone != nil {
		if *update.Timezone != "" {
			if _, err := time.LoadLocation(*update.Timezone); err != nil {
				return models.TenantSettings{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timezone %q", *update.Timezone))
			}
		}
		settings.Timezone = *update.Timezone
	}
	if update.AllowQueueWhileSuspended != nil {
		settings.AllowQueueWhileSuspended = *update.AllowQueueWhileSuspended
	}
	if settings.ScheduleEnabled && settings.Timezone == "" {
		return models.TenantSettings{}, appErrors.Clone(appErrors.ErrScheduleMisconfigured, "enable a timezone before enabling the schedule")
	}

	if err := s.repo.UpsertSettings(ctx, &settings); err != nil {
		return models.TenantSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
	}

	if s.status != nil {
		s.status.Invalidate(ctx, tenantID)
	}
	s.logger.Info("settings updated", zap.String("tenant_id", tenantID))
	return settings, nil
}

// SetSuspended toggles the manual suspension override. Suspension wins over
// every schedule rule until lifted.
func (s *SettingsService) SetSuspended(ctx context.Context, tenantID string, suspended bool) (models.TenantSettings, error) {
	settings, err := s.Get(ctx, tenantID)
	if err != nil {
		return models.TenantSettings{}, err
	}
	settings.Suspended = suspended
	if err := s.repo.UpsertSettings(ctx, &settings); err != nil {
		return models.TenantSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
	}
	if s.status != nil {
		s.status.Invalidate(ctx, tenantID)
	}
	s.logger.Info("suspension toggled", zap.String("tenant_id", tenantID), zap.Bool("suspended", suspended))
	return settings, nil
}
