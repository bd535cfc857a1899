package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
)

type scheduleRuleRepository interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.ScheduleRule, error)
	ListEnabled(ctx context.Context, tenantID string) ([]models.ScheduleRule, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleRule, error)
	Create(ctx context.Context, rule *models.ScheduleRule) error
	Update(ctx context.Context, rule *models.ScheduleRule) error
	Delete(ctx context.Context, tenantID, id string) error
}

type scheduleSettingsReader interface {
	GetSettings(ctx context.Context, tenantID string) (*models.TenantSettings, error)
}

// ScheduleRuleInput is the create/update payload for a schedule rule.
type ScheduleRuleInput struct {
	Label      string     `json:"label" validate:"required,max=120"`
	StartTime  string     `json:"start_time" validate:"required"`
	EndTime    string     `json:"end_time" validate:"required"`
	StartDate  time.Time  `json:"start_date" validate:"required"`
	EndDate    *time.Time `json:"end_date"`
	Recurrence string     `json:"recurrence" validate:"required"`
	CustomDays []int      `json:"custom_days"`
	Enabled    bool       `json:"enabled"`
}

// ScheduleService manages schedule rule CRUD and evaluates availability.
type ScheduleService struct {
	rules    scheduleRuleRepository
	settings scheduleSettingsReader
	status   statusInvalidator
	logger   *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(rules scheduleRuleRepository, settings scheduleSettingsReader, status statusInvalidator, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{rules: rules, settings: settings, status: status, logger: logger}
}

// SetStatusInvalidator attaches the status cache eviction hook. The status
// service itself depends on schedule evaluation, so this link is wired after
// both exist.
func (s *ScheduleService) SetStatusInvalidator(status statusInvalidator) {
	s.status = status
}

// List returns the tenant's schedule rules.
func (s *ScheduleService) List(ctx context.Context, tenantID string) ([]models.ScheduleRule, error) {
	rules, err := s.rules.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule rules")
	}
	return rules, nil
}

// Create validates and stores a new rule.
func (s *ScheduleService) Create(ctx context.Context, tenantID string, input ScheduleRuleInput) (*models.ScheduleRule, error) {
	rule, err := s.buildRule(tenantID, input)
	if err != nil {
		return nil, err
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule rule")
	}
	s.invalidate(ctx, tenantID)
	return rule, nil
}

// Update validates and replaces an existing rule.
func (s *ScheduleService) Update(ctx context.Context, tenantID, ruleID string, input ScheduleRuleInput) (*models.ScheduleRule, error) {
	existing, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule rule")
	}
	if existing.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule rule not found")
	}

	rule, err := s.buildRule(tenantID, input)
	if err != nil {
		return nil, err
	}
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule rule")
	}
	s.invalidate(ctx, tenantID)
	return rule, nil
}

// Delete removes a rule.
func (s *ScheduleService) Delete(ctx context.Context, tenantID, ruleID string) error {
	existing, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule rule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule rule")
	}
	if existing.TenantID != tenantID {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule rule not found")
	}
	if err := s.rules.Delete(ctx, tenantID, ruleID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule rule")
	}
	s.invalidate(ctx, tenantID)
	return nil
}

// Availability evaluates the tenant's schedule at the given instant. A
// misconfigured schedule (enabled, no usable timezone) fails closed and maps
// to ErrScheduleMisconfigured for admin surfaces.
func (s *ScheduleService) Availability(ctx context.Context, tenantID string, now time.Time) (Availability, error) {
	settings, err := s.loadSettings(ctx, tenantID)
	if err != nil {
		return Availability{}, err
	}

	var rules []models.ScheduleRule
	if settings.ScheduleEnabled && !settings.Suspended {
		rules, err = s.rules.ListEnabled(ctx, tenantID)
		if err != nil {
			return Availability{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule rules")
		}
	}

	availability, err := EvaluateAvailability(settings, rules, now)
	if err != nil {
		s.logger.Warn("schedule misconfigured, failing closed",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return Availability{Open: false, QueueOnly: settings.AllowQueueWhileSuspended},
			appErrors.Wrap(err, appErrors.ErrScheduleMisconfigured.Code, appErrors.ErrScheduleMisconfigured.Status, appErrors.ErrScheduleMisconfigured.Message)
	}
	return availability, nil
}

func (s *ScheduleService) loadSettings(ctx context.Context, tenantID string) (models.TenantSettings, error) {
	settings, err := s.settings.GetSettings(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultSettings(tenantID), nil
		}
		return models.TenantSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return *settings, nil
}

func (s *ScheduleService) buildRule(tenantID string, input ScheduleRuleInput) (*models.ScheduleRule, error) {
	if input.Label == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "label is required")
	}
	start, err := parseClock(input.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid start_time %q", input.StartTime))
	}
	end, err := parseClock(input.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid end_time %q", input.EndTime))
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	if input.StartDate.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date is required")
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	kind := models.RecurrenceKind(input.Recurrence)
	if !models.ValidRecurrenceKind(kind) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown recurrence %q", input.Recurrence))
	}
	var days pq.Int64Array
	if kind == models.RecurrenceCustom {
		if len(input.CustomDays) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "custom recurrence requires at least one day")
		}
		seen := map[int]struct{}{}
		for _, d := range input.CustomDays {
			if d < 0 || d > 6 {
				return nil, appErrors.Clone(appErrors.ErrValidation, "custom days must be 0 (Sunday) through 6 (Saturday)")
			}
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			days = append(days, int64(d))
		}
	}

	return &models.ScheduleRule{
		TenantID:   tenantID,
		Label:      input.Label,
		StartTime:  input.StartTime,
		EndTime:    input.EndTime,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		Recurrence: kind,
		CustomDays: days,
		Enabled:    input.Enabled,
	}, nil
}

func (s *ScheduleService) invalidate(ctx context.Context, tenantID string) {
	if s.status != nil {
		s.status.Invalidate(ctx, tenantID)
	}
}
