package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallpasshq/hallpass-api/internal/models"
)

func TestScheduleRepositoryListEnabled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "label", "start_time", "end_time", "start_date", "end_date", "recurrence", "custom_days", "enabled", "created_at", "updated_at"}).
		AddRow("rule-1", "tenant-1", "mornings", "08:00", "10:00", now, nil, "custom", pq.Int64Array{1, 3}, true, now, now)
	mock.ExpectQuery("SELECT .+ FROM schedule_rules WHERE tenant_id .+ enabled").
		WithArgs("tenant-1").
		WillReturnRows(rows)

	rules, err := repo.ListEnabled(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, models.RecurrenceCustom, rules[0].Recurrence)
	assert.Equal(t, pq.Int64Array{1, 3}, rules[0].CustomDays)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_rules")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rule := &models.ScheduleRule{
		TenantID:   "tenant-1",
		Label:      "class hours",
		StartTime:  "08:00",
		EndTime:    "15:00",
		StartDate:  time.Now().UTC(),
		Recurrence: models.RecurrenceWeekdays,
		Enabled:    true,
	}
	require.NoError(t, repo.Create(context.Background(), rule))
	assert.NotEmpty(t, rule.ID)
	assert.False(t, rule.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteScopedToTenant(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_rules WHERE id = $1 AND tenant_id = $2")).
		WithArgs("rule-1", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "tenant-1", "rule-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
