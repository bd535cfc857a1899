package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRepositoryJoinAssignsNextOrdinal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WithArgs("tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(ordinal) + 1, 0)")).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO queue_entries")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ordinal, err := repo.Join(context.Background(), "tenant-1", "student-c", now)
	require.NoError(t, err)
	assert.Equal(t, 2, ordinal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepositoryLeaveCompactsOrdinals(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM queue_entries WHERE tenant_id = $1 AND student_ref = $2 RETURNING ordinal")).
		WithArgs("tenant-1", "student-b").
		WillReturnRows(sqlmock.NewRows([]string{"ordinal"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE queue_entries SET ordinal = ordinal - 1")).
		WithArgs("tenant-1", 1).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	removed, err := repo.Leave(context.Background(), "tenant-1", "student-b")
	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepositoryLeaveNotQueued(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM queue_entries")).
		WithArgs("tenant-1", "student-x").
		WillReturnRows(sqlmock.NewRows([]string{"ordinal"}))
	mock.ExpectRollback()

	removed, err := repo.Leave(context.Background(), "tenant-1", "student-x")
	require.NoError(t, err)
	assert.False(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepositoryReorderMismatchRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_ref FROM queue_entries")).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_ref"}).AddRow("student-a").AddRow("student-b"))
	mock.ExpectRollback()

	err := repo.Reorder(context.Background(), "tenant-1", []string{"student-a", "student-x"})
	assert.ErrorIs(t, err, ErrReorderMismatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepositoryReorderStagesThenApplies(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_ref FROM queue_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"student_ref"}).AddRow("student-a").AddRow("student-b"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE queue_entries SET ordinal = ordinal + $2")).
		WithArgs("tenant-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE queue_entries SET ordinal = $3")).
		WithArgs("tenant-1", "student-b", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE queue_entries SET ordinal = $3")).
		WithArgs("tenant-1", "student-a", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Reorder(context.Background(), "tenant-1", []string{"student-b", "student-a"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
