package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hallpasshq/hallpass-api/internal/models"
)

// RosterRepository is the narrow lookup/write contract onto the roster
// directory: ban state and display-name resolution. The engine never sees
// raw student identifiers, only opaque references.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs a RosterRepository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// IsBanned reports the student's current ban state. Unknown students are
// not banned.
func (r *RosterRepository) IsBanned(ctx context.Context, tenantID, studentRef string) (bool, error) {
	var banned bool
	err := r.db.GetContext(ctx, &banned, "SELECT banned FROM roster WHERE tenant_id = $1 AND student_ref = $2", tenantID, studentRef)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check ban state: %w", err)
	}
	return banned, nil
}

// SetBanned updates the student's ban state, stamping banned_since on ban
// and clearing it on unban. Creates a minimal roster row when missing.
func (r *RosterRepository) SetBanned(ctx context.Context, tenantID, studentRef string, banned bool, now time.Time) error {
	var since *time.Time
	if banned {
		since = &now
	}
	const query = `INSERT INTO roster (tenant_id, student_ref, display_name, banned, banned_since)
		VALUES ($1, $2, '', $3, $4)
		ON CONFLICT (tenant_id, student_ref) DO UPDATE SET banned = EXCLUDED.banned, banned_since = EXCLUDED.banned_since`
	if _, err := r.db.ExecContext(ctx, query, tenantID, studentRef, banned, since); err != nil {
		return fmt.Errorf("set ban state: %w", err)
	}
	return nil
}

// ResolveName returns the student's display name, or empty when unknown.
func (r *RosterRepository) ResolveName(ctx context.Context, tenantID, studentRef string) (string, error) {
	var name string
	err := r.db.GetContext(ctx, &name, "SELECT display_name FROM roster WHERE tenant_id = $1 AND student_ref = $2", tenantID, studentRef)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("resolve student name: %w", err)
	}
	return name, nil
}

// List returns the tenant's roster ordered by display name.
func (r *RosterRepository) List(ctx context.Context, tenantID string, limit int) ([]models.RosterEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	const query = `SELECT tenant_id, student_ref, display_name, banned, banned_since FROM roster
		WHERE tenant_id = $1 ORDER BY display_name ASC LIMIT $2`
	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, tenantID, limit); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return entries, nil
}

// Count returns the roster size for the tenant.
func (r *RosterRepository) Count(ctx context.Context, tenantID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM roster WHERE tenant_id = $1", tenantID); err != nil {
		return 0, fmt.Errorf("count roster: %w", err)
	}
	return count, nil
}
