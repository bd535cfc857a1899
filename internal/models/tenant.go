package models

import "time"

// Tenant is a teacher/room-scoped isolation boundary. Each tenant owns one
// capacity counter, one schedule rule set, one queue and one pass history.
type Tenant struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	RoomName     string    `db:"room_name" json:"room_name"`
	KioskToken   string    `db:"kiosk_token" json:"-"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TenantSettings enumerates every recognized per-tenant option with typed
// defaults, replacing the loose settings bag of the legacy system.
type TenantSettings struct {
	TenantID                 string    `db:"tenant_id" json:"tenant_id"`
	Capacity                 int       `db:"capacity" json:"capacity"`
	OverdueMinutes           int       `db:"overdue_minutes" json:"overdue_minutes"`
	EnableQueue              bool      `db:"enable_queue" json:"enable_queue"`
	AutoPromoteQueue         bool      `db:"auto_promote_queue" json:"auto_promote_queue"`
	AutoBanOverdue           bool      `db:"auto_ban_overdue" json:"auto_ban_overdue"`
	ScheduleEnabled          bool      `db:"schedule_enabled" json:"schedule_enabled"`
	Timezone                 string    `db:"timezone" json:"timezone"`
	AllowQueueWhileSuspended bool      `db:"allow_queue_while_suspended" json:"allow_queue_while_suspended"`
	Suspended                bool      `db:"suspended" json:"suspended"`
	UpdatedAt                time.Time `db:"updated_at" json:"updated_at"`
}

// OverdueThreshold converts the configured overdue minutes into a duration.
func (s TenantSettings) OverdueThreshold() time.Duration {
	return time.Duration(s.OverdueMinutes) * time.Minute
}

// DefaultSettings returns the settings applied to a tenant that has never
// saved any.
func DefaultSettings(tenantID string) TenantSettings {
	return TenantSettings{
		TenantID:       tenantID,
		Capacity:       1,
		OverdueMinutes: 10,
	}
}
