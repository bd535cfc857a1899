package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
	"github.com/hallpasshq/hallpass-api/pkg/export"
)

type sessionHistoryRepository interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	End(ctx context.Context, sessionID, endedBy string, now time.Time) (bool, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]models.Session, int, error)
	PurgeHistory(ctx context.Context, tenantID string) (int64, error)
}

type sessionRosterReader interface {
	ResolveName(ctx context.Context, tenantID, studentRef string) (string, error)
}

type releasePromoter interface {
	PromoteAfterRelease(ctx context.Context, tenantID string) string
}

// SessionService covers the admin-facing session operations: forced ends,
// history browsing, purges and exports.
type SessionService struct {
	sessions sessionHistoryRepository
	roster   sessionRosterReader
	settings settingsProvider
	promoter releasePromoter
	status   statusInvalidator
	logger   *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions sessionHistoryRepository, roster sessionRosterReader, settings settingsProvider,
	promoter releasePromoter, status statusInvalidator, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions: sessions,
		roster:   roster,
		settings: settings,
		promoter: promoter,
		status:   status,
		logger:   logger,
	}
}

// EndSession force-ends a session as an admin override. Ending twice is a
// conflict; the original end timestamp is never overwritten.
func (s *SessionService) EndSession(ctx context.Context, tenantID, sessionID string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}

	now := time.Now().UTC()
	ended, err := s.sessions.End(ctx, sessionID, models.ActorAdmin, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end session")
	}
	if !ended {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnded, "")
	}

	if s.status != nil {
		s.status.Invalidate(ctx, tenantID)
	}
	if s.promoter != nil {
		s.promoter.PromoteAfterRelease(ctx, tenantID)
	}

	session, err = s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload session")
	}
	s.logger.Info("session ended by admin", zap.String("tenant_id", tenantID), zap.String("session_id", sessionID))
	return session, nil
}

// Logs returns the tenant's session history as display rows with pagination.
// A still-open session past the threshold reads as overdue even if the
// monitor has not acted on it yet.
func (s *SessionService) Logs(ctx context.Context, tenantID string, page, pageSize int) ([]models.SessionLog, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	settings, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	threshold := settings.OverdueThreshold()

	sessions, total, err := s.sessions.List(ctx, tenantID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}

	now := time.Now().UTC()
	logs := make([]models.SessionLog, 0, len(sessions))
	for _, session := range sessions {
		logs = append(logs, s.toLog(ctx, session, now, threshold))
	}
	return logs, models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// PurgeHistory deletes the tenant's ended sessions and reports the count.
// Active sessions are never purged.
func (s *SessionService) PurgeHistory(ctx context.Context, tenantID string) (int64, error) {
	purged, err := s.sessions.PurgeHistory(ctx, tenantID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge history")
	}
	s.logger.Info("history purged", zap.String("tenant_id", tenantID), zap.Int64("purged", purged))
	return purged, nil
}

// Export renders the tenant's full session history in the requested format.
func (s *SessionService) Export(ctx context.Context, tenantID, format string) (*export.Artifact, error) {
	exporter, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	settings, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	threshold := settings.OverdueThreshold()

	sessions, _, err := s.sessions.List(ctx, tenantID, 1000, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}

	now := time.Now().UTC()
	dataset := export.Dataset{
		Title:   "Pass history",
		Headers: []string{"Student", "Start", "End", "Minutes", "Status"},
		Rows:    make([]map[string]string, 0, len(sessions)),
	}
	for _, session := range sessions {
		log := s.toLog(ctx, session, now, threshold)
		end := ""
		if log.End != nil {
			end = log.End.UTC().Format(time.RFC3339)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student": log.Name,
			"Start":   log.Start.UTC().Format(time.RFC3339),
			"End":     end,
			"Minutes": fmt.Sprintf("%.1f", log.DurationMinutes),
			"Status":  string(log.Status),
		})
	}

	artifact, err := exporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return artifact, nil
}

func (s *SessionService) toLog(ctx context.Context, session models.Session, now time.Time, threshold time.Duration) models.SessionLog {
	name, err := s.roster.ResolveName(ctx, session.TenantID, session.StudentRef)
	if err != nil || name == "" {
		name = session.StudentRef
	}
	status := session.Status
	if session.EndTS == nil && session.IsOverdue(now, threshold) {
		status = models.SessionOverdue
	}
	return models.SessionLog{
		ID:              session.ID,
		StudentRef:      session.StudentRef,
		Name:            name,
		Start:           session.StartTS,
		End:             session.EndTS,
		DurationMinutes: session.Elapsed(now).Minutes(),
		Status:          status,
	}
}
