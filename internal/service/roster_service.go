package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
)

type rosterDirectoryRepository interface {
	List(ctx context.Context, tenantID string, limit int) ([]models.RosterEntry, error)
	SetBanned(ctx context.Context, tenantID, studentRef string, banned bool, now time.Time) error
}

// RosterView is one roster row with the computed ban age.
type RosterView struct {
	models.RosterEntry
	BanDays *int `json:"ban_days,omitempty"`
}

// RosterService exposes the roster directory to admin surfaces.
type RosterService struct {
	roster rosterDirectoryRepository
	status statusInvalidator
	logger *zap.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(roster rosterDirectoryRepository, status statusInvalidator, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{roster: roster, status: status, logger: logger}
}

// List returns the tenant's roster with ban ages computed.
func (s *RosterService) List(ctx context.Context, tenantID string, limit int) ([]RosterView, error) {
	entries, err := s.roster.List(ctx, tenantID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	now := time.Now().UTC()
	views := make([]RosterView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, RosterView{RosterEntry: entry, BanDays: entry.BanDays(now)})
	}
	return views, nil
}

// SetBanned toggles a student's ban state manually.
func (s *RosterService) SetBanned(ctx context.Context, tenantID, studentRef string, banned bool) error {
	if studentRef == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student reference is required")
	}
	if err := s.roster.SetBanned(ctx, tenantID, studentRef, banned, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update ban state")
	}
	if s.status != nil {
		s.status.Invalidate(ctx, tenantID)
	}
	s.logger.Info("ban state changed",
		zap.String("tenant_id", tenantID),
		zap.String("student_ref", studentRef),
		zap.Bool("banned", banned))
	return nil
}
