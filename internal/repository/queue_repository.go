package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hallpasshq/hallpass-api/internal/models"
)

// ErrReorderMismatch reports a reorder list that is not an exact permutation
// of the current queue membership.
var ErrReorderMismatch = errors.New("reorder list does not match queue membership")

// QueueRepository manages the per-tenant waitlist. Ordinals are kept as a
// dense permutation [0, n); every mutation runs inside a transaction holding
// the tenant's advisory lock so concurrent join/leave/reorder on one tenant
// serialize without cross-tenant contention. Promotion does not pop here:
// the admission layer peeks the front, claims a capacity slot first, and
// only then removes the entry via Leave.
type QueueRepository struct {
	db *sqlx.DB
}

// NewQueueRepository constructs a QueueRepository.
func NewQueueRepository(db *sqlx.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

func lockTenantQueue(ctx context.Context, tx *sqlx.Tx, tenantID string) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 7))", tenantID); err != nil {
		return fmt.Errorf("lock tenant queue: %w", err)
	}
	return nil
}

// List returns the tenant's queue ordered front to back.
func (r *QueueRepository) List(ctx context.Context, tenantID string) ([]models.QueueEntry, error) {
	const query = `SELECT id, tenant_id, student_ref, joined_ts, ordinal FROM queue_entries WHERE tenant_id = $1 ORDER BY ordinal ASC`
	var entries []models.QueueEntry
	if err := r.db.SelectContext(ctx, &entries, query, tenantID); err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	return entries, nil
}

// Find returns the student's queue entry, or nil.
func (r *QueueRepository) Find(ctx context.Context, tenantID, studentRef string) (*models.QueueEntry, error) {
	const query = `SELECT id, tenant_id, student_ref, joined_ts, ordinal FROM queue_entries WHERE tenant_id = $1 AND student_ref = $2`
	var entry models.QueueEntry
	if err := r.db.GetContext(ctx, &entry, query, tenantID, studentRef); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find queue entry: %w", err)
	}
	return &entry, nil
}

// Length returns the current queue size.
func (r *QueueRepository) Length(ctx context.Context, tenantID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM queue_entries WHERE tenant_id = $1", tenantID); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return count, nil
}

// Front returns the entry at ordinal 0, or nil for an empty queue.
func (r *QueueRepository) Front(ctx context.Context, tenantID string) (*models.QueueEntry, error) {
	const query = `SELECT id, tenant_id, student_ref, joined_ts, ordinal FROM queue_entries WHERE tenant_id = $1 AND ordinal = 0`
	var entry models.QueueEntry
	if err := r.db.GetContext(ctx, &entry, query, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find queue front: %w", err)
	}
	return &entry, nil
}

// Join appends the student at the back of the queue and returns the assigned
// ordinal. Joining twice is rejected by the unique (tenant, student) index.
func (r *QueueRepository) Join(ctx context.Context, tenantID, studentRef string, now time.Time) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin join: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockTenantQueue(ctx, tx, tenantID); err != nil {
		return 0, err
	}

	var next int
	if err := tx.GetContext(ctx, &next, "SELECT COALESCE(MAX(ordinal) + 1, 0) FROM queue_entries WHERE tenant_id = $1", tenantID); err != nil {
		return 0, fmt.Errorf("next ordinal: %w", err)
	}

	const insert = `INSERT INTO queue_entries (id, tenant_id, student_ref, joined_ts, ordinal) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), tenantID, studentRef, now, next); err != nil {
		return 0, fmt.Errorf("insert queue entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit join: %w", err)
	}
	return next, nil
}

// Leave removes the student and compacts ordinals. Returns false when the
// student was not queued.
func (r *QueueRepository) Leave(ctx context.Context, tenantID, studentRef string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin leave: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockTenantQueue(ctx, tx, tenantID); err != nil {
		return false, err
	}

	var removed int
	err = tx.GetContext(ctx, &removed, "DELETE FROM queue_entries WHERE tenant_id = $1 AND student_ref = $2 RETURNING ordinal", tenantID, studentRef)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("delete queue entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE queue_entries SET ordinal = ordinal - 1 WHERE tenant_id = $1 AND ordinal > $2", tenantID, removed); err != nil {
		return false, fmt.Errorf("compact queue: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit leave: %w", err)
	}
	return true, nil
}

// Reorder replaces the ordinal assignment wholesale. The ordered list must
// contain exactly the current membership; any mismatch returns
// ErrReorderMismatch and leaves the queue untouched.
func (r *QueueRepository) Reorder(ctx context.Context, tenantID string, orderedRefs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockTenantQueue(ctx, tx, tenantID); err != nil {
		return err
	}

	var current []string
	if err := tx.SelectContext(ctx, &current, "SELECT student_ref FROM queue_entries WHERE tenant_id = $1", tenantID); err != nil {
		return fmt.Errorf("load queue membership: %w", err)
	}

	if len(current) != len(orderedRefs) {
		return ErrReorderMismatch
	}
	membership := make(map[string]struct{}, len(current))
	for _, ref := range current {
		membership[ref] = struct{}{}
	}
	seen := make(map[string]struct{}, len(orderedRefs))
	for _, ref := range orderedRefs {
		if _, ok := membership[ref]; !ok {
			return ErrReorderMismatch
		}
		if _, dup := seen[ref]; dup {
			return ErrReorderMismatch
		}
		seen[ref] = struct{}{}
	}

	// Shift out of range first so the unique (tenant, ordinal) index never
	// sees an intermediate collision.
	offset := len(orderedRefs)
	if _, err := tx.ExecContext(ctx, "UPDATE queue_entries SET ordinal = ordinal + $2 WHERE tenant_id = $1", tenantID, offset); err != nil {
		return fmt.Errorf("stage reorder: %w", err)
	}
	for i, ref := range orderedRefs {
		if _, err := tx.ExecContext(ctx, "UPDATE queue_entries SET ordinal = $3 WHERE tenant_id = $1 AND student_ref = $2", tenantID, ref, i); err != nil {
			return fmt.Errorf("apply reorder: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}
