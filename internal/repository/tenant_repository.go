package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hallpasshq/hallpass-api/internal/models"
)

const tenantColumns = "id, email, password_hash, room_name, kiosk_token, active, created_at, updated_at"

// TenantRepository manages tenant accounts and their typed settings rows.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository constructs a TenantRepository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// FindByID fetches a tenant by ID.
func (r *TenantRepository) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	query := fmt.Sprintf("SELECT %s FROM tenants WHERE id = $1", tenantColumns)
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, id); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// FindByEmail fetches a tenant by admin email.
func (r *TenantRepository) FindByEmail(ctx context.Context, email string) (*models.Tenant, error) {
	query := fmt.Sprintf("SELECT %s FROM tenants WHERE LOWER(email) = LOWER($1)", tenantColumns)
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, email); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// FindByKioskToken resolves the opaque kiosk token to its tenant.
func (r *TenantRepository) FindByKioskToken(ctx context.Context, token string) (*models.Tenant, error) {
	query := fmt.Sprintf("SELECT %s FROM tenants WHERE kiosk_token = $1 AND active", tenantColumns)
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, token); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetSettings loads the tenant's settings row. Callers fall back to
// models.DefaultSettings on sql.ErrNoRows.
func (r *TenantRepository) GetSettings(ctx context.Context, tenantID string) (*models.TenantSettings, error) {
	const query = `SELECT tenant_id, capacity, overdue_minutes, enable_queue, auto_promote_queue, auto_ban_overdue,
			schedule_enabled, timezone, allow_queue_while_suspended, suspended, updated_at
		FROM tenant_settings WHERE tenant_id = $1`
	var settings models.TenantSettings
	if err := r.db.GetContext(ctx, &settings, query, tenantID); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpsertSettings writes the full typed settings row.
func (r *TenantRepository) UpsertSettings(ctx context.Context, settings *models.TenantSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO tenant_settings (tenant_id, capacity, overdue_minutes, enable_queue, auto_promote_queue,
			auto_ban_overdue, schedule_enabled, timezone, allow_queue_while_suspended, suspended, updated_at)
		VALUES (:tenant_id, :capacity, :overdue_minutes, :enable_queue, :auto_promote_queue,
			:auto_ban_overdue, :schedule_enabled, :timezone, :allow_queue_while_suspended, :suspended, :updated_at)
		ON CONFLICT (tenant_id) DO UPDATE SET
			capacity = EXCLUDED.capacity,
			overdue_minutes = EXCLUDED.overdue_minutes,
			enable_queue = EXCLUDED.enable_queue,
			auto_promote_queue = EXCLUDED.auto_promote_queue,
			auto_ban_overdue = EXCLUDED.auto_ban_overdue,
			schedule_enabled = EXCLUDED.schedule_enabled,
			timezone = EXCLUDED.timezone,
			allow_queue_while_suspended = EXCLUDED.allow_queue_while_suspended,
			suspended = EXCLUDED.suspended,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// ListAutoBanTenantIDs returns tenants whose settings enable overdue
// auto-banning. Consumed by the overdue monitor each sweep.
func (r *TenantRepository) ListAutoBanTenantIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT s.tenant_id FROM tenant_settings s
		JOIN tenants t ON t.id = s.tenant_id
		WHERE s.auto_ban_overdue AND t.active`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list auto-ban tenants: %w", err)
	}
	return ids, nil
}
