package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
)

// capacityInsertAttempts bounds the retry loop around the conditional session
// insert. Losing the race this many times in a row means the room is
// genuinely contended; the scan resolves to a queue or denial outcome.
const capacityInsertAttempts = 3

type admissionSessionRepository interface {
	ActiveForStudent(ctx context.Context, tenantID, studentRef string) (*models.Session, error)
	InsertIfUnderCapacity(ctx context.Context, session *models.Session, capacity int) (bool, error)
	End(ctx context.Context, sessionID, endedBy string, now time.Time) (bool, error)
}

type admissionQueueRepository interface {
	Find(ctx context.Context, tenantID, studentRef string) (*models.QueueEntry, error)
	Front(ctx context.Context, tenantID string) (*models.QueueEntry, error)
	Join(ctx context.Context, tenantID, studentRef string, now time.Time) (int, error)
	Leave(ctx context.Context, tenantID, studentRef string) (bool, error)
}

type admissionRosterRepository interface {
	IsBanned(ctx context.Context, tenantID, studentRef string) (bool, error)
	SetBanned(ctx context.Context, tenantID, studentRef string, banned bool, now time.Time) error
	ResolveName(ctx context.Context, tenantID, studentRef string) (string, error)
}

type settingsProvider interface {
	Get(ctx context.Context, tenantID string) (models.TenantSettings, error)
}

// AdmissionService is the single decision point for kiosk scans. Every scan
// resolves to exactly one outcome; denials are results, not errors. The
// evaluation order is fixed so the same state always yields the same outcome:
//
//  1. an active session ends (a returning student always gets back in)
//  2. banned students are denied
//  3. a queued student's scan removes them from the queue
//  4. suspension denies, or queues when queue-only is in effect
//  5. a conditional insert claims a capacity slot
//  6. a full room queues the student when queueing is enabled
//  7. otherwise the scan is denied for capacity
type AdmissionService struct {
	sessions admissionSessionRepository
	queue    admissionQueueRepository
	roster   admissionRosterRepository
	settings settingsProvider
	schedule availabilityEvaluator
	status   statusInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewAdmissionService constructs an AdmissionService.
func NewAdmissionService(sessions admissionSessionRepository, queue admissionQueueRepository,
	roster admissionRosterRepository, settings settingsProvider, schedule availabilityEvaluator,
	status statusInvalidator, metrics *MetricsService, logger *zap.Logger) *AdmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{
		sessions: sessions,
		queue:    queue,
		roster:   roster,
		settings: settings,
		schedule: schedule,
		status:   status,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HandleScan resolves one scan event to its outcome.
func (s *AdmissionService) HandleScan(ctx context.Context, tenantID, studentRef string) (*models.ScanResult, error) {
	if studentRef == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student reference is required")
	}
	now := s.now()

	settings, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result, err := s.resolve(ctx, tenantID, studentRef, settings, now)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordScanOutcome(string(result.Outcome))
	if s.status != nil {
		s.status.Invalidate(ctx, tenantID)
	}
	s.logger.Info("scan resolved",
		zap.String("tenant_id", tenantID),
		zap.String("student_ref", studentRef),
		zap.String("outcome", string(result.Outcome)),
		zap.String("reason", string(result.Reason)))
	return result, nil
}

func (s *AdmissionService) resolve(ctx context.Context, tenantID, studentRef string, settings models.TenantSettings, now time.Time) (*models.ScanResult, error) {
	name := s.displayName(ctx, tenantID, studentRef)

	// Step 1: a returning student ends their session regardless of every
	// other condition. Bans and suspensions never trap anyone in the hall.
	active, err := s.sessions.ActiveForStudent(ctx, tenantID, studentRef)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active session")
	}
	if active != nil {
		return s.endAndMaybePromote(ctx, tenantID, studentRef, name, active, settings, now)
	}

	// Step 2: ban gate.
	banned, err := s.roster.IsBanned(ctx, tenantID, studentRef)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check ban state")
	}
	if banned {
		return &models.ScanResult{
			Outcome:     models.OutcomeDenied,
			Reason:      models.DenyBanned,
			Message:     "pass privileges are revoked",
			StudentName: name,
		}, nil
	}

	// Step 3: a queued student's scan is a self-removal toggle.
	queued, err := s.queue.Find(ctx, tenantID, studentRef)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check queue")
	}
	if queued != nil {
		if _, err := s.queue.Leave(ctx, tenantID, studentRef); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to leave queue")
		}
		return &models.ScanResult{
			Outcome:     models.OutcomeLeftQueue,
			Message:     "removed from the waitlist",
			StudentName: name,
		}, nil
	}

	// Step 4: suspension, manual or scheduled. Queue-only tenants still
	// accept queue joins while closed.
	availability, err := s.schedule.Availability(ctx, tenantID, now)
	if err != nil {
		// Fail closed on schedule misconfiguration: scans are denied as
		// suspended rather than erroring at the kiosk.
		availability = Availability{Open: false, QueueOnly: settings.AllowQueueWhileSuspended}
	}
	if !availability.Open {
		if availability.QueueOnly && settings.EnableQueue {
			return s.joinQueue(ctx, tenantID, studentRef, name, now)
		}
		return &models.ScanResult{
			Outcome:     models.OutcomeDenied,
			Reason:      models.DenySuspended,
			Message:     "the pass is closed right now",
			StudentName: name,
		}, nil
	}

	// Step 5: claim a capacity slot. The conditional insert is retried a
	// bounded number of times; a retry only happens when a concurrent scan
	// changed the active count between our attempt and its check.
	for attempt := 0; attempt < capacityInsertAttempts; attempt++ {
		session := &models.Session{
			TenantID:   tenantID,
			StudentRef: studentRef,
			StartTS:    now,
			StartedBy:  models.ActorKioskScan,
		}
		inserted, err := s.sessions.InsertIfUnderCapacity(ctx, session, settings.Capacity)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start session")
		}
		if inserted {
			return &models.ScanResult{
				Outcome:     models.OutcomeStarted,
				Message:     "pass started",
				StudentName: name,
			}, nil
		}
		s.metrics.RecordCapacityRetry()
	}

	// Steps 6 and 7: the room is full.
	if settings.EnableQueue {
		return s.joinQueue(ctx, tenantID, studentRef, name, now)
	}
	return &models.ScanResult{
		Outcome:     models.OutcomeDenied,
		Reason:      models.DenyCapacityFull,
		Message:     "the pass is in use",
		StudentName: name,
	}, nil
}

func (s *AdmissionService) joinQueue(ctx context.Context, tenantID, studentRef, name string, now time.Time) (*models.ScanResult, error) {
	ordinal, err := s.queue.Join(ctx, tenantID, studentRef, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join queue")
	}
	// The reported position is the 0-based ordinal: the front of the queue
	// is position 0, which also reads as "students ahead of you".
	return &models.ScanResult{
		Outcome:       models.OutcomeQueued,
		Message:       fmt.Sprintf("added to the waitlist, %d ahead of you", ordinal),
		StudentName:   name,
		QueuePosition: &ordinal,
	}, nil
}

func (s *AdmissionService) endAndMaybePromote(ctx context.Context, tenantID, studentRef, name string,
	active *models.Session, settings models.TenantSettings, now time.Time) (*models.ScanResult, error) {
	ended, err := s.sessions.End(ctx, active.ID, models.ActorKioskScan, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end session")
	}
	if !ended {
		// A concurrent actor (admin override, duplicate scan) already ended
		// it. The student's intent is satisfied either way.
		s.logger.Debug("session already ended", zap.String("session_id", active.ID))
	}

	result := &models.ScanResult{
		Outcome:     models.OutcomeEnded,
		Message:     "welcome back",
		StudentName: name,
	}

	// A late return can cost pass privileges.
	if settings.AutoBanOverdue && active.IsOverdue(now, settings.OverdueThreshold()) {
		if err := s.roster.SetBanned(ctx, tenantID, studentRef, true, now); err != nil {
			s.logger.Error("ban on late return", zap.String("tenant_id", tenantID), zap.Error(err))
		} else {
			s.metrics.RecordOverdueBan()
			result.Outcome = models.OutcomeEndedBanned
			result.Message = "returned late; pass privileges revoked"
		}
	}

	if promoted := s.promoteNext(ctx, tenantID, settings, now); promoted != "" {
		result.PromotedStudent = &promoted
	}
	return result, nil
}

// PromoteAfterRelease runs the auto-promotion check after a slot was freed
// outside the scan path (an admin override ending a session). Returns the
// promoted student's reference, or empty.
func (s *AdmissionService) PromoteAfterRelease(ctx context.Context, tenantID string) string {
	settings, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		s.logger.Warn("load settings for promotion", zap.String("tenant_id", tenantID), zap.Error(err))
		return ""
	}
	promoted := s.promoteNext(ctx, tenantID, settings, s.now())
	if promoted != "" && s.status != nil {
		s.status.Invalidate(ctx, tenantID)
	}
	return promoted
}

// promoteNext moves the queue front into the freed slot when auto-promotion
// is enabled and the schedule is open. Promotion is best effort: a failure
// leaves the student queued and is logged, never surfaced to the scanner.
func (s *AdmissionService) promoteNext(ctx context.Context, tenantID string, settings models.TenantSettings, now time.Time) string {
	if !settings.EnableQueue || !settings.AutoPromoteQueue {
		return ""
	}
	availability, err := s.schedule.Availability(ctx, tenantID, now)
	if err != nil || !availability.Open {
		return ""
	}

	front, err := s.queue.Front(ctx, tenantID)
	if err != nil {
		s.logger.Warn("peek queue front", zap.String("tenant_id", tenantID), zap.Error(err))
		return ""
	}
	if front == nil {
		return ""
	}

	session := &models.Session{
		TenantID:   tenantID,
		StudentRef: front.StudentRef,
		StartTS:    now,
		StartedBy:  models.ActorAutoPromote,
	}
	inserted, err := s.sessions.InsertIfUnderCapacity(ctx, session, settings.Capacity)
	if err != nil {
		s.logger.Warn("promote queue front", zap.String("tenant_id", tenantID), zap.Error(err))
		return ""
	}
	if !inserted {
		// The freed slot was claimed by a concurrent scan. The student keeps
		// their place at the front.
		return ""
	}
	if _, err := s.queue.Leave(ctx, tenantID, front.StudentRef); err != nil {
		s.logger.Error("dequeue promoted student", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	s.logger.Info("queue front promoted",
		zap.String("tenant_id", tenantID), zap.String("student_ref", front.StudentRef))
	return front.StudentRef
}

func (s *AdmissionService) displayName(ctx context.Context, tenantID, studentRef string) string {
	name, err := s.roster.ResolveName(ctx, tenantID, studentRef)
	if err != nil || name == "" {
		return studentRef
	}
	return name
}
