package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hallpasshq/hallpass-api/internal/models"
)

const scheduleColumns = "id, tenant_id, label, start_time, end_time, start_date, end_date, recurrence, custom_days, enabled, created_at, updated_at"

// ScheduleRepository manages persistence for schedule rules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListByTenant returns the tenant's rules, newest first.
func (r *ScheduleRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.ScheduleRule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_rules WHERE tenant_id = $1 ORDER BY created_at DESC", scheduleColumns)
	var rules []models.ScheduleRule
	if err := r.db.SelectContext(ctx, &rules, query, tenantID); err != nil {
		return nil, fmt.Errorf("list schedule rules: %w", err)
	}
	return rules, nil
}

// ListEnabled returns only the tenant's enabled rules, for evaluation.
func (r *ScheduleRepository) ListEnabled(ctx context.Context, tenantID string) ([]models.ScheduleRule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_rules WHERE tenant_id = $1 AND enabled", scheduleColumns)
	var rules []models.ScheduleRule
	if err := r.db.SelectContext(ctx, &rules, query, tenantID); err != nil {
		return nil, fmt.Errorf("list enabled schedule rules: %w", err)
	}
	return rules, nil
}

// FindByID fetches a rule by ID.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ScheduleRule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_rules WHERE id = $1", scheduleColumns)
	var rule models.ScheduleRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create inserts a new rule.
func (r *ScheduleRepository) Create(ctx context.Context, rule *models.ScheduleRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	const query = `INSERT INTO schedule_rules (id, tenant_id, label, start_time, end_time, start_date, end_date, recurrence, custom_days, enabled, created_at, updated_at)
		VALUES (:id, :tenant_id, :label, :start_time, :end_time, :start_date, :end_date, :recurrence, :custom_days, :enabled, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create schedule rule: %w", err)
	}
	return nil
}

// Update modifies an existing rule.
func (r *ScheduleRepository) Update(ctx context.Context, rule *models.ScheduleRule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_rules SET label = :label, start_time = :start_time, end_time = :end_time,
			start_date = :start_date, end_date = :end_date, recurrence = :recurrence, custom_days = :custom_days,
			enabled = :enabled, updated_at = :updated_at
		WHERE id = :id AND tenant_id = :tenant_id`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("update schedule rule: %w", err)
	}
	return nil
}

// Delete removes a rule.
func (r *ScheduleRepository) Delete(ctx context.Context, tenantID, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM schedule_rules WHERE id = $1 AND tenant_id = $2", id, tenantID); err != nil {
		return fmt.Errorf("delete schedule rule: %w", err)
	}
	return nil
}
