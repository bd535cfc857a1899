package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallpasshq/hallpass-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryInsertIfUnderCapacityWins(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WithArgs("tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	session := &models.Session{TenantID: "tenant-1", StudentRef: "student-a", StartedBy: models.ActorKioskScan}
	inserted, err := repo.InsertIfUnderCapacity(context.Background(), session, 1)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, models.SessionActive, session.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryInsertIfUnderCapacityLoses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WithArgs("tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Zero rows affected: the WHERE clause saw the room full.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	session := &models.Session{TenantID: "tenant-1", StudentRef: "student-a", StartedBy: models.ActorKioskScan}
	inserted, err := repo.InsertIfUnderCapacity(context.Background(), session, 1)
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Two back-to-back winning inserts must each take the tenant lock before
// their conditional insert; without that ordering a pair of concurrent scans
// could both count the room one short of full and both claim the last slot.
func TestSessionRepositoryInsertHoldsTenantLockPerAttempt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
			WithArgs("tenant-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		affected := int64(1)
		if i == 1 {
			affected = 0 // the first insert filled the room
		}
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
			WillReturnResult(sqlmock.NewResult(0, affected))
		if i == 0 {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
	}

	first := &models.Session{TenantID: "tenant-1", StudentRef: "student-a", StartedBy: models.ActorKioskScan}
	inserted, err := repo.InsertIfUnderCapacity(context.Background(), first, 1)
	require.NoError(t, err)
	assert.True(t, inserted)

	second := &models.Session{TenantID: "tenant-1", StudentRef: "student-b", StartedBy: models.ActorKioskScan}
	inserted, err = repo.InsertIfUnderCapacity(context.Background(), second, 1)
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryEndOnce(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET end_ts")).
		WithArgs("session-1", now, string(models.SessionCompleted), models.ActorKioskScan).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ended, err := repo.End(context.Background(), "session-1", models.ActorKioskScan, now)
	require.NoError(t, err)
	assert.True(t, ended)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryEndAlreadyEnded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	now := time.Now().UTC()
	// end_ts IS NULL filter matched nothing: already ended.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET end_ts")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ended, err := repo.End(context.Background(), "session-1", models.ActorAdmin, now)
	require.NoError(t, err)
	assert.False(t, ended)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryActiveForStudentNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectQuery("SELECT .+ FROM sessions WHERE tenant_id").
		WithArgs("tenant-1", "student-a").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	session, err := repo.ActiveForStudent(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Nil(t, session)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryOverdueUnactionedCutoff(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-10 * time.Minute)

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "student_ref", "start_ts", "end_ts", "status", "started_by", "ended_by", "overdue_banned_at"}).
		AddRow("s1", "tenant-1", "student-a", now.Add(-30*time.Minute), nil, "active", models.ActorKioskScan, nil, nil)
	mock.ExpectQuery("SELECT .+ FROM sessions WHERE tenant_id .+ overdue_banned_at IS NULL").
		WithArgs("tenant-1", cutoff).
		WillReturnRows(rows)

	sessions, err := repo.OverdueUnactioned(context.Background(), "tenant-1", 10*time.Minute, now)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryPurgeHistory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE tenant_id = $1 AND end_ts IS NOT NULL")).
		WithArgs("tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	purged, err := repo.PurgeHistory(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), purged)
	require.NoError(t, mock.ExpectationsWereMet())
}
