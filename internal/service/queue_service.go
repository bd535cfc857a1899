package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hallpasshq/hallpass-api/internal/models"
	"github.com/hallpasshq/hallpass-api/internal/repository"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
)

type queueRepositoryContract interface {
	List(ctx context.Context, tenantID string) ([]models.QueueEntry, error)
	Find(ctx context.Context, tenantID, studentRef string) (*models.QueueEntry, error)
	Join(ctx context.Context, tenantID, studentRef string, now time.Time) (int, error)
	Leave(ctx context.Context, tenantID, studentRef string) (bool, error)
	Reorder(ctx context.Context, tenantID string, orderedRefs []string) error
}

// QueueService manages the tenant waitlist for admin surfaces. Kiosk-driven
// joins and self-removals flow through AdmissionService; this service covers
// the explicit queue operations: listing, removal and reordering.
type QueueService struct {
	queue  queueRepositoryContract
	status statusInvalidator
	logger *zap.Logger
}

// NewQueueService constructs a QueueService.
func NewQueueService(queue queueRepositoryContract, status statusInvalidator, logger *zap.Logger) *QueueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{queue: queue, status: status, logger: logger}
}

// List returns the queue front to back.
func (s *QueueService) List(ctx context.Context, tenantID string) ([]models.QueueEntry, error) {
	entries, err := s.queue.List(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list queue")
	}
	return entries, nil
}

// Remove deletes a student from the queue, compacting ordinals behind them.
func (s *QueueService) Remove(ctx context.Context, tenantID, studentRef string) error {
	removed, err := s.queue.Leave(ctx, tenantID, studentRef)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove from queue")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotQueued, "")
	}
	s.invalidate(ctx, tenantID)
	s.logger.Info("queue entry removed", zap.String("tenant_id", tenantID), zap.String("student_ref", studentRef))
	return nil
}

// Reorder replaces the queue order wholesale. The ordered list must be an
// exact permutation of the current membership; a stale list (someone joined
// or left since the admin loaded it) is rejected without changes.
func (s *QueueService) Reorder(ctx context.Context, tenantID string, orderedRefs []string) ([]models.QueueEntry, error) {
	if err := s.queue.Reorder(ctx, tenantID, orderedRefs); err != nil {
		if errors.Is(err, repository.ErrReorderMismatch) {
			return nil, appErrors.Clone(appErrors.ErrInvalidReorder, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reorder queue")
	}
	s.invalidate(ctx, tenantID)

	entries, err := s.queue.List(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list queue")
	}
	return entries, nil
}

func (s *QueueService) invalidate(ctx context.Context, tenantID string) {
	if s.status != nil {
		s.status.Invalidate(ctx, tenantID)
	}
}
