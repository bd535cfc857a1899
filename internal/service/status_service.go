package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
)

type statusSessionRepository interface {
	ListActive(ctx context.Context, tenantID string) ([]models.Session, error)
}

type statusQueueRepository interface {
	List(ctx context.Context, tenantID string) ([]models.QueueEntry, error)
}

type statusRosterRepository interface {
	ResolveName(ctx context.Context, tenantID, studentRef string) (string, error)
}

type statusTenantRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
	GetSettings(ctx context.Context, tenantID string) (*models.TenantSettings, error)
}

type statusCacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type availabilityEvaluator interface {
	Availability(ctx context.Context, tenantID string, now time.Time) (Availability, error)
}

// StatusService assembles the polling snapshot consumed by kiosks and wall
// displays. Payloads are cached briefly; the per-student flags are derived
// from the cached payload so a cache hit still answers "am I active/queued".
type StatusService struct {
	tenants  statusTenantRepository
	sessions statusSessionRepository
	queue    statusQueueRepository
	roster   statusRosterRepository
	schedule availabilityEvaluator
	cache    statusCacheStore
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewStatusService constructs a StatusService.
func NewStatusService(tenants statusTenantRepository, sessions statusSessionRepository, queue statusQueueRepository,
	roster statusRosterRepository, schedule availabilityEvaluator, cache statusCacheStore,
	metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Second
	}
	return &StatusService{
		tenants:  tenants,
		sessions: sessions,
		queue:    queue,
		roster:   roster,
		schedule: schedule,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

func statusCacheKey(tenantID string) string {
	return "status:" + tenantID
}

// Snapshot returns the tenant's current status payload. studentRef may be
// empty; when present the per-student flags are filled in.
func (s *StatusService) Snapshot(ctx context.Context, tenantID, studentRef string, now time.Time) (*models.StatusPayload, error) {
	var payload models.StatusPayload
	cached := false
	if s.cache != nil {
		err := s.cache.Get(ctx, statusCacheKey(tenantID), &payload)
		cached = err == nil
		s.metrics.RecordCacheOperation(cached)
	}

	if !cached {
		built, err := s.build(ctx, tenantID, now)
		if err != nil {
			return nil, err
		}
		payload = *built
		if s.cache != nil {
			if err := s.cache.Set(ctx, statusCacheKey(tenantID), payload, s.cacheTTL); err != nil {
				s.logger.Warn("cache status payload", zap.String("tenant_id", tenantID), zap.Error(err))
			}
		}
	}

	if studentRef != "" {
		for _, session := range payload.ActiveSessions {
			if session.StudentRef == studentRef {
				payload.IsStudentActive = true
				break
			}
		}
		for _, entry := range payload.Queue {
			if entry.StudentRef == studentRef {
				payload.IsStudentQueued = true
				break
			}
		}
	}
	return &payload, nil
}

// Invalidate evicts the tenant's cached payload. Called after every scan,
// queue mutation and settings change.
func (s *StatusService) Invalidate(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statusCacheKey(tenantID)); err != nil {
		s.logger.Warn("invalidate status cache", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func (s *StatusService) build(ctx context.Context, tenantID string, now time.Time) (*models.StatusPayload, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant")
	}

	settings, err := s.tenants.GetSettings(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
		}
		defaults := models.DefaultSettings(tenantID)
		settings = &defaults
	}

	availability, err := s.schedule.Availability(ctx, tenantID, now)
	if err != nil {
		// Misconfigured schedules fail closed; the payload still renders so
		// displays show the suspended state rather than an error page.
		availability = Availability{Open: false, QueueOnly: settings.AllowQueueWhileSuspended}
	}

	sessions, err := s.sessions.ListActive(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active sessions")
	}
	entries, err := s.queue.List(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list queue")
	}

	threshold := settings.OverdueThreshold()
	payload := &models.StatusPayload{
		RoomName:       tenant.RoomName,
		Suspended:      !availability.Open,
		QueueOnly:      !availability.Open && availability.QueueOnly,
		Capacity:       settings.Capacity,
		ActiveCount:    len(sessions),
		QueueLength:    len(entries),
		OverdueMinutes: settings.OverdueMinutes,
		ActiveSessions: make([]models.ActiveSessionView, 0, len(sessions)),
		Queue:          make([]models.QueueView, 0, len(entries)),
	}
	payload.Stamp(now)

	for _, session := range sessions {
		name := s.resolveName(ctx, tenantID, session.StudentRef)
		payload.ActiveSessions = append(payload.ActiveSessions, models.ActiveSessionView{
			ID:             session.ID,
			StudentRef:     session.StudentRef,
			Name:           name,
			StartMS:        session.StartTS.UnixMilli(),
			ElapsedSeconds: int(session.Elapsed(now).Seconds()),
			Overdue:        session.IsOverdue(now, threshold),
		})
	}
	for _, entry := range entries {
		payload.Queue = append(payload.Queue, models.QueueView{
			StudentRef: entry.StudentRef,
			Name:       s.resolveName(ctx, tenantID, entry.StudentRef),
			Ordinal:    entry.Ordinal,
		})
	}
	return payload, nil
}

func (s *StatusService) resolveName(ctx context.Context, tenantID, studentRef string) string {
	name, err := s.roster.ResolveName(ctx, tenantID, studentRef)
	if err != nil {
		s.logger.Warn("resolve student name", zap.String("tenant_id", tenantID), zap.Error(err))
		return ""
	}
	if name == "" {
		return studentRef
	}
	return name
}
