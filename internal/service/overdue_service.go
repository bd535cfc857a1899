package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
	"github.com/hallpasshq/hallpass-api/pkg/jobs"
)

type overdueSessionRepository interface {
	OverdueUnactioned(ctx context.Context, tenantID string, threshold time.Duration, now time.Time) ([]models.Session, error)
	MarkOverdueActioned(ctx context.Context, sessionID string, now time.Time) error
}

type overdueRosterRepository interface {
	IsBanned(ctx context.Context, tenantID, studentRef string) (bool, error)
	SetBanned(ctx context.Context, tenantID, studentRef string, banned bool, now time.Time) error
}

type overdueTenantLister interface {
	ListAutoBanTenantIDs(ctx context.Context) ([]string, error)
}

// OverdueConfig tunes the monitor's sweep cadence and worker pool.
type OverdueConfig struct {
	Enabled       bool
	SweepInterval time.Duration
	Workers       int
	MaxRetries    int
}

// OverdueService watches for students who stay out past the tenant's
// threshold. Each tick fans out one sweep job per auto-ban tenant; sweeps
// ban the offender but never end the session. Overdue and returned are
// orthogonal facts: the student is still out, and the session stays active
// until they scan back in.
type OverdueService struct {
	sessions overdueSessionRepository
	roster   overdueRosterRepository
	tenants  overdueTenantLister
	settings settingsProvider
	status   statusInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
	config   OverdueConfig

	queue  *jobs.Queue
	cancel context.CancelFunc
	now    func() time.Time
}

// NewOverdueService constructs the overdue monitor.
func NewOverdueService(sessions overdueSessionRepository, roster overdueRosterRepository,
	tenants overdueTenantLister, settings settingsProvider, status statusInvalidator,
	metrics *MetricsService, logger *zap.Logger, config OverdueConfig) *OverdueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	s := &OverdueService{
		sessions: sessions,
		roster:   roster,
		tenants:  tenants,
		settings: settings,
		status:   status,
		metrics:  metrics,
		logger:   logger,
		config:   config,
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.queue = jobs.NewQueue("overdue-sweep", s.handleSweepJob, jobs.QueueConfig{
		Workers:    config.Workers,
		MaxRetries: config.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the sweep ticker and worker pool.
func (s *OverdueService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info("overdue monitor disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(s.config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.enqueueSweeps(ctx)
			}
		}
	}()
	s.logger.Info("overdue monitor started", zap.Duration("interval", s.config.SweepInterval))
}

// Stop halts the ticker and drains workers.
func (s *OverdueService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.queue.Stop()
}

func (s *OverdueService) enqueueSweeps(ctx context.Context) {
	tenantIDs, err := s.tenants.ListAutoBanTenantIDs(ctx)
	if err != nil {
		s.logger.Error("list auto-ban tenants", zap.Error(err))
		return
	}
	for _, tenantID := range tenantIDs {
		job := jobs.Job{ID: uuid.NewString(), Type: "overdue-sweep", Payload: tenantID}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("enqueue sweep", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
}

func (s *OverdueService) handleSweepJob(ctx context.Context, job jobs.Job) error {
	tenantID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("sweep job payload is %T, want string", job.Payload)
	}
	_, err := s.SweepTenant(ctx, tenantID)
	return err
}

// SweepTenant bans every overdue, unactioned session holder for the tenant
// and marks the sessions actioned so each offense bans at most once.
// Returns the number of students banned.
func (s *OverdueService) SweepTenant(ctx context.Context, tenantID string) (int, error) {
	start := s.now()
	settings, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	overdue, err := s.sessions.OverdueUnactioned(ctx, tenantID, settings.OverdueThreshold(), start)
	if err != nil {
		return 0, fmt.Errorf("list overdue sessions: %w", err)
	}

	banned := 0
	for _, session := range overdue {
		n, err := s.actionSession(ctx, tenantID, session, start)
		if err != nil {
			return banned, err
		}
		banned += n
	}

	s.metrics.ObserveSweep(s.now().Sub(start))
	if banned > 0 && s.status != nil {
		s.status.Invalidate(ctx, tenantID)
	}
	return banned, nil
}

func (s *OverdueService) actionSession(ctx context.Context, tenantID string, session models.Session, now time.Time) (int, error) {
	alreadyBanned, err := s.roster.IsBanned(ctx, tenantID, session.StudentRef)
	if err != nil {
		return 0, fmt.Errorf("check ban state: %w", err)
	}

	banned := 0
	if !alreadyBanned {
		if err := s.roster.SetBanned(ctx, tenantID, session.StudentRef, true, now); err != nil {
			return 0, fmt.Errorf("ban overdue student: %w", err)
		}
		s.metrics.RecordOverdueBan()
		banned = 1
		s.logger.Info("student banned for overdue pass",
			zap.String("tenant_id", tenantID),
			zap.String("student_ref", session.StudentRef),
			zap.String("session_id", session.ID))
	}

	if err := s.sessions.MarkOverdueActioned(ctx, session.ID, now); err != nil {
		return banned, fmt.Errorf("mark session actioned: %w", err)
	}
	return banned, nil
}

// BanAllOverdue is the manual control: sweep the tenant immediately
// regardless of the auto-ban setting.
func (s *OverdueService) BanAllOverdue(ctx context.Context, tenantID string) (int, error) {
	banned, err := s.SweepTenant(ctx, tenantID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ban overdue students")
	}
	return banned, nil
}
