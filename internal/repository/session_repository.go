package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hallpasshq/hallpass-api/internal/models"
)

const sessionColumns = "id, tenant_id, student_ref, start_ts, end_ts, status, started_by, ended_by, overdue_banned_at"

// SessionRepository manages persistence for pass sessions. It is the source
// of truth for capacity accounting: inserts are conditional on the tenant's
// live active count so two concurrent scans can never both win the last slot.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Capacity inserts serialize on a per-tenant advisory lock, in a separate
// namespace from the queue lock so scans and queue edits don't contend.
func lockTenantCapacity(ctx context.Context, tx *sqlx.Tx, tenantID string) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 11))", tenantID); err != nil {
		return fmt.Errorf("lock tenant capacity: %w", err)
	}
	return nil
}

// InsertIfUnderCapacity starts a session only while the tenant's active count
// is below capacity. Returns false when no slot was available.
//
// The count-then-insert must serialize: under READ COMMITTED two concurrent
// inserts each take a statement snapshot that excludes the other's row, so
// with one slot left both would count capacity-1 and both would win. Holding
// the tenant's advisory lock across the conditional insert makes the second
// insert wait and see the first one's committed row. The partial unique index
// on (tenant_id, student_ref) WHERE end_ts IS NULL independently guards the
// one-active-session-per-student invariant.
func (r *SessionRepository) InsertIfUnderCapacity(ctx context.Context, session *models.Session, capacity int) (bool, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.StartTS.IsZero() {
		session.StartTS = time.Now().UTC()
	}
	session.Status = models.SessionActive

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin session insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockTenantCapacity(ctx, tx, session.TenantID); err != nil {
		return false, err
	}

	const query = `INSERT INTO sessions (id, tenant_id, student_ref, start_ts, status, started_by)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE (SELECT COUNT(*) FROM sessions WHERE tenant_id = $2 AND end_ts IS NULL) < $7`
	res, err := tx.ExecContext(ctx, query,
		session.ID, session.TenantID, session.StudentRef, session.StartTS, session.Status, session.StartedBy, capacity)
	if err != nil {
		return false, fmt.Errorf("insert session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert session rows: %w", err)
	}
	if affected != 1 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit session insert: %w", err)
	}
	return true, nil
}

// End completes a session exactly once. Returns false when the session was
// already ended, leaving the original end timestamp untouched.
func (r *SessionRepository) End(ctx context.Context, sessionID, endedBy string, now time.Time) (bool, error) {
	const query = `UPDATE sessions SET end_ts = $2, status = $3, ended_by = $4 WHERE id = $1 AND end_ts IS NULL`
	res, err := r.db.ExecContext(ctx, query, sessionID, now, models.SessionCompleted, endedBy)
	if err != nil {
		return false, fmt.Errorf("end session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("end session rows: %w", err)
	}
	return affected == 1, nil
}

// FindByID fetches a session by ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ActiveCount returns the number of open sessions for the tenant.
func (r *SessionRepository) ActiveCount(ctx context.Context, tenantID string) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE tenant_id = $1 AND end_ts IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID); err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return count, nil
}

// ActiveForStudent returns the student's open session, or nil.
func (r *SessionRepository) ActiveForStudent(ctx context.Context, tenantID, studentRef string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE tenant_id = $1 AND student_ref = $2 AND end_ts IS NULL", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, tenantID, studentRef); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active session: %w", err)
	}
	return &session, nil
}

// ListActive returns all open sessions for the tenant, oldest first.
func (r *SessionRepository) ListActive(ctx context.Context, tenantID string) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE tenant_id = $1 AND end_ts IS NULL ORDER BY start_ts ASC", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, tenantID); err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sessions, nil
}

// List returns session history newest first along with the total count.
func (r *SessionRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]models.Session, int, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE tenant_id = $1 ORDER BY start_ts DESC LIMIT $2 OFFSET $3", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, tenantID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sessions WHERE tenant_id = $1", tenantID); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// OverdueUnactioned returns open sessions past the threshold that the
// monitor has not yet acted on.
func (r *SessionRepository) OverdueUnactioned(ctx context.Context, tenantID string, threshold time.Duration, now time.Time) ([]models.Session, error) {
	cutoff := now.Add(-threshold)
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE tenant_id = $1 AND end_ts IS NULL AND overdue_banned_at IS NULL AND start_ts < $2", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, tenantID, cutoff); err != nil {
		return nil, fmt.Errorf("list overdue sessions: %w", err)
	}
	return sessions, nil
}

// MarkOverdueActioned stamps a session as handled by the overdue monitor and
// persists the overdue status for reporting. The session stays active:
// overdue and returned are orthogonal facts.
func (r *SessionRepository) MarkOverdueActioned(ctx context.Context, sessionID string, now time.Time) error {
	const query = `UPDATE sessions SET overdue_banned_at = $2, status = $3 WHERE id = $1 AND end_ts IS NULL`
	if _, err := r.db.ExecContext(ctx, query, sessionID, now, models.SessionOverdue); err != nil {
		return fmt.Errorf("mark session overdue: %w", err)
	}
	return nil
}

// AggregateSince rolls up per-student totals and overdue counts for sessions
// started on or after the given instant.
func (r *SessionRepository) AggregateSince(ctx context.Context, tenantID string, since time.Time, threshold time.Duration) ([]models.SessionAggregate, error) {
	const query = `SELECT student_ref,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE EXTRACT(EPOCH FROM (COALESCE(end_ts, NOW()) - start_ts)) > $3) AS overdue
		FROM sessions
		WHERE tenant_id = $1 AND start_ts >= $2
		GROUP BY student_ref`
	var aggregates []models.SessionAggregate
	if err := r.db.SelectContext(ctx, &aggregates, query, tenantID, since, threshold.Seconds()); err != nil {
		return nil, fmt.Errorf("aggregate sessions: %w", err)
	}
	return aggregates, nil
}

// CountAll returns the total session count for the tenant.
func (r *SessionRepository) CountAll(ctx context.Context, tenantID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sessions WHERE tenant_id = $1", tenantID); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return total, nil
}

// PurgeHistory deletes the tenant's ended sessions.
func (r *SessionRepository) PurgeHistory(ctx context.Context, tenantID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE tenant_id = $1 AND end_ts IS NOT NULL", tenantID)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions rows: %w", err)
	}
	return affected, nil
}
