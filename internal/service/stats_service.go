package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
)

const insightWindow = 30 * 24 * time.Hour
const insightLimit = 5

type statsSessionRepository interface {
	CountAll(ctx context.Context, tenantID string) (int, error)
	ActiveCount(ctx context.Context, tenantID string) (int, error)
	AggregateSince(ctx context.Context, tenantID string, since time.Time, threshold time.Duration) ([]models.SessionAggregate, error)
}

type statsQueueRepository interface {
	Length(ctx context.Context, tenantID string) (int, error)
}

type statsRosterRepository interface {
	Count(ctx context.Context, tenantID string) (int, error)
	ResolveName(ctx context.Context, tenantID, studentRef string) (string, error)
}

type statsTenantRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
}

// StatsService builds the admin dashboard summary and 30-day insights.
type StatsService struct {
	tenants  statsTenantRepository
	sessions statsSessionRepository
	queue    statsQueueRepository
	roster   statsRosterRepository
	settings settingsProvider
	logger   *zap.Logger
}

// NewStatsService constructs a StatsService.
func NewStatsService(tenants statsTenantRepository, sessions statsSessionRepository, queue statsQueueRepository,
	roster statsRosterRepository, settings settingsProvider, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		tenants:  tenants,
		sessions: sessions,
		queue:    queue,
		roster:   roster,
		settings: settings,
		logger:   logger,
	}
}

// Dashboard assembles the tenant's dashboard stats.
func (s *StatsService) Dashboard(ctx context.Context, tenantID string) (*models.DashboardStats, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant")
	}

	settings, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	total, err := s.sessions.CountAll(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	active, err := s.sessions.ActiveCount(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active sessions")
	}
	queueLength, err := s.queue.Length(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count queue")
	}
	rosterCount, err := s.roster.Count(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count roster")
	}

	insights, err := s.insights(ctx, tenantID, settings)
	if err != nil {
		return nil, err
	}

	return &models.DashboardStats{
		RoomName:      tenant.RoomName,
		TotalSessions: total,
		ActiveCount:   active,
		RosterCount:   rosterCount,
		QueueLength:   queueLength,
		Settings:      settings,
		Insights:      *insights,
	}, nil
}

func (s *StatsService) insights(ctx context.Context, tenantID string, settings models.TenantSettings) (*models.DashboardInsights, error) {
	since := time.Now().UTC().Add(-insightWindow)
	aggregates, err := s.sessions.AggregateSince(ctx, tenantID, since, settings.OverdueThreshold())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate sessions")
	}

	byTotal := make([]models.SessionAggregate, len(aggregates))
	copy(byTotal, aggregates)
	sort.SliceStable(byTotal, func(i, j int) bool { return byTotal[i].Total > byTotal[j].Total })

	byOverdue := make([]models.SessionAggregate, 0, len(aggregates))
	for _, agg := range aggregates {
		if agg.Overdue > 0 {
			byOverdue = append(byOverdue, agg)
		}
	}
	sort.SliceStable(byOverdue, func(i, j int) bool { return byOverdue[i].Overdue > byOverdue[j].Overdue })

	insights := &models.DashboardInsights{
		TopStudents: make([]models.StudentInsight, 0, insightLimit),
		MostOverdue: make([]models.StudentInsight, 0, insightLimit),
	}
	for i, agg := range byTotal {
		if i >= insightLimit {
			break
		}
		insights.TopStudents = append(insights.TopStudents, models.StudentInsight{
			StudentRef: agg.StudentRef,
			Name:       s.resolveName(ctx, tenantID, agg.StudentRef),
			Count:      agg.Total,
		})
	}
	for i, agg := range byOverdue {
		if i >= insightLimit {
			break
		}
		insights.MostOverdue = append(insights.MostOverdue, models.StudentInsight{
			StudentRef: agg.StudentRef,
			Name:       s.resolveName(ctx, tenantID, agg.StudentRef),
			Count:      agg.Overdue,
		})
	}
	return insights, nil
}

func (s *StatsService) resolveName(ctx context.Context, tenantID, studentRef string) string {
	name, err := s.roster.ResolveName(ctx, tenantID, studentRef)
	if err != nil || name == "" {
		return studentRef
	}
	return name
}
