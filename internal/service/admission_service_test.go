package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hallpasshq/hallpass-api/internal/models"
)

type mockSessionRepo struct {
	active        map[string]*models.Session
	activeCount   int
	inserted      []*models.Session
	ended         []string
	insertDenials int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{active: map[string]*models.Session{}}
}

func (m *mockSessionRepo) ActiveForStudent(ctx context.Context, tenantID, studentRef string) (*models.Session, error) {
	return m.active[studentRef], nil
}

func (m *mockSessionRepo) InsertIfUnderCapacity(ctx context.Context, session *models.Session, capacity int) (bool, error) {
	if m.insertDenials > 0 {
		m.insertDenials--
		return false, nil
	}
	if m.activeCount >= capacity {
		return false, nil
	}
	m.activeCount++
	session.ID = "session-" + session.StudentRef
	m.active[session.StudentRef] = session
	m.inserted = append(m.inserted, session)
	return true, nil
}

func (m *mockSessionRepo) End(ctx context.Context, sessionID, endedBy string, now time.Time) (bool, error) {
	for ref, session := range m.active {
		if session.ID == sessionID {
			delete(m.active, ref)
			m.activeCount--
			m.ended = append(m.ended, sessionID)
			return true, nil
		}
	}
	return false, nil
}

type mockQueueRepo struct {
	refs []string
}

func (m *mockQueueRepo) Find(ctx context.Context, tenantID, studentRef string) (*models.QueueEntry, error) {
	for i, ref := range m.refs {
		if ref == studentRef {
			return &models.QueueEntry{TenantID: tenantID, StudentRef: ref, Ordinal: i}, nil
		}
	}
	return nil, nil
}

func (m *mockQueueRepo) Front(ctx context.Context, tenantID string) (*models.QueueEntry, error) {
	if len(m.refs) == 0 {
		return nil, nil
	}
	return &models.QueueEntry{TenantID: tenantID, StudentRef: m.refs[0], Ordinal: 0}, nil
}

func (m *mockQueueRepo) Join(ctx context.Context, tenantID, studentRef string, now time.Time) (int, error) {
	m.refs = append(m.refs, studentRef)
	return len(m.refs) - 1, nil
}

func (m *mockQueueRepo) Leave(ctx context.Context, tenantID, studentRef string) (bool, error) {
	for i, ref := range m.refs {
		if ref == studentRef {
			m.refs = append(m.refs[:i], m.refs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type mockRosterRepo struct {
	banned map[string]bool
	names  map[string]string
}

func newMockRosterRepo() *mockRosterRepo {
	return &mockRosterRepo{banned: map[string]bool{}, names: map[string]string{}}
}

func (m *mockRosterRepo) IsBanned(ctx context.Context, tenantID, studentRef string) (bool, error) {
	return m.banned[studentRef], nil
}

func (m *mockRosterRepo) SetBanned(ctx context.Context, tenantID, studentRef string, banned bool, now time.Time) error {
	m.banned[studentRef] = banned
	return nil
}

func (m *mockRosterRepo) ResolveName(ctx context.Context, tenantID, studentRef string) (string, error) {
	return m.names[studentRef], nil
}

type mockSettingsProvider struct {
	settings models.TenantSettings
}

func (m *mockSettingsProvider) Get(ctx context.Context, tenantID string) (models.TenantSettings, error) {
	return m.settings, nil
}

type mockAvailability struct {
	availability Availability
	err          error
}

func (m *mockAvailability) Availability(ctx context.Context, tenantID string, now time.Time) (Availability, error) {
	return m.availability, m.err
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) Invalidate(ctx context.Context, tenantID string) { m.calls++ }

type admissionFixture struct {
	sessions *mockSessionRepo
	queue    *mockQueueRepo
	roster   *mockRosterRepo
	settings *mockSettingsProvider
	schedule *mockAvailability
	status   *mockInvalidator
	service  *AdmissionService
}

func newAdmissionFixture(settings models.TenantSettings) *admissionFixture {
	f := &admissionFixture{
		sessions: newMockSessionRepo(),
		queue:    &mockQueueRepo{},
		roster:   newMockRosterRepo(),
		settings: &mockSettingsProvider{settings: settings},
		schedule: &mockAvailability{availability: Availability{Open: true}},
		status:   &mockInvalidator{},
	}
	f.service = NewAdmissionService(f.sessions, f.queue, f.roster, f.settings, f.schedule, f.status, nil, zap.NewNop())
	return f
}

func openSettings() models.TenantSettings {
	settings := models.DefaultSettings("tenant-1")
	settings.EnableQueue = true
	return settings
}

func TestHandleScanStartsSession(t *testing.T) {
	f := newAdmissionFixture(openSettings())

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeStarted, result.Outcome)
	require.Len(t, f.sessions.inserted, 1)
	assert.Equal(t, models.ActorKioskScan, f.sessions.inserted[0].StartedBy)
	assert.Equal(t, 1, f.status.calls)
}

func TestHandleScanEndsActiveSession(t *testing.T) {
	f := newAdmissionFixture(openSettings())

	_, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEnded, result.Outcome)
	assert.Empty(t, f.sessions.active)
}

func TestHandleScanReturnWinsOverBan(t *testing.T) {
	f := newAdmissionFixture(openSettings())
	_, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)

	// Banned mid-pass; the return scan still ends the session.
	f.roster.banned["student-a"] = true
	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEnded, result.Outcome)
}

func TestHandleScanDeniesBanned(t *testing.T) {
	f := newAdmissionFixture(openSettings())
	f.roster.banned["student-a"] = true

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDenied, result.Outcome)
	assert.Equal(t, models.DenyBanned, result.Reason)
	assert.Empty(t, f.sessions.inserted)
}

func TestHandleScanQueuedStudentLeavesQueue(t *testing.T) {
	f := newAdmissionFixture(openSettings())
	f.queue.refs = []string{"student-a"}

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeLeftQueue, result.Outcome)
	assert.Empty(t, f.queue.refs)
	assert.Empty(t, f.sessions.inserted, "a queue exit never starts a session")
}

func TestHandleScanSuspendedDenies(t *testing.T) {
	f := newAdmissionFixture(openSettings())
	f.schedule.availability = Availability{Open: false}

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDenied, result.Outcome)
	assert.Equal(t, models.DenySuspended, result.Reason)
}

func TestHandleScanQueueOnlyJoinsQueue(t *testing.T) {
	f := newAdmissionFixture(openSettings())
	f.schedule.availability = Availability{Open: false, QueueOnly: true}

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeQueued, result.Outcome)
	require.NotNil(t, result.QueuePosition)
	assert.Equal(t, 0, *result.QueuePosition, "an empty queue's first join is the front")
	assert.Empty(t, f.sessions.inserted)
}

// Positions are 0-based ordinals: with a one-slot room occupied by A, B's
// scan queues at position 0 and C's at position 1.
func TestHandleScanFullRoomQueues(t *testing.T) {
	f := newAdmissionFixture(openSettings())
	_, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-b")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeQueued, result.Outcome)
	require.NotNil(t, result.QueuePosition)
	assert.Equal(t, 0, *result.QueuePosition)

	result, err = f.service.HandleScan(context.Background(), "tenant-1", "student-c")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeQueued, result.Outcome)
	require.NotNil(t, result.QueuePosition)
	assert.Equal(t, 1, *result.QueuePosition)
}

func TestHandleScanFullRoomWithoutQueueDenies(t *testing.T) {
	settings := openSettings()
	settings.EnableQueue = false
	f := newAdmissionFixture(settings)
	_, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-b")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDenied, result.Outcome)
	assert.Equal(t, models.DenyCapacityFull, result.Reason)
}

func TestHandleScanRetriesLostCapacityRace(t *testing.T) {
	f := newAdmissionFixture(openSettings())
	// Two denials simulate concurrent scans flipping the count; the third
	// attempt wins.
	f.sessions.insertDenials = 2

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeStarted, result.Outcome)
}

func TestHandleScanAutoPromotesOnReturn(t *testing.T) {
	settings := openSettings()
	settings.AutoPromoteQueue = true
	f := newAdmissionFixture(settings)

	_, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	f.queue.refs = []string{"student-b", "student-c"}

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEnded, result.Outcome)
	require.NotNil(t, result.PromotedStudent)
	assert.Equal(t, "student-b", *result.PromotedStudent)
	assert.Equal(t, []string{"student-c"}, f.queue.refs)
	require.Len(t, f.sessions.inserted, 2)
	assert.Equal(t, models.ActorAutoPromote, f.sessions.inserted[1].StartedBy)
}

func TestHandleScanNoPromotionWhenDisabled(t *testing.T) {
	f := newAdmissionFixture(openSettings())
	_, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	f.queue.refs = []string{"student-b"}

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Nil(t, result.PromotedStudent)
	assert.Equal(t, []string{"student-b"}, f.queue.refs)
}

func TestHandleScanNoPromotionWhileClosed(t *testing.T) {
	settings := openSettings()
	settings.AutoPromoteQueue = true
	f := newAdmissionFixture(settings)
	_, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	f.queue.refs = []string{"student-b"}

	f.schedule.availability = Availability{Open: false}
	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEnded, result.Outcome, "return is always allowed")
	assert.Nil(t, result.PromotedStudent)
	assert.Equal(t, []string{"student-b"}, f.queue.refs)
}

func TestHandleScanBansLateReturn(t *testing.T) {
	settings := openSettings()
	settings.AutoBanOverdue = true
	settings.OverdueMinutes = 10
	f := newAdmissionFixture(settings)

	started := time.Now().UTC().Add(-30 * time.Minute)
	f.sessions.active["student-a"] = &models.Session{
		ID:         "session-student-a",
		TenantID:   "tenant-1",
		StudentRef: "student-a",
		StartTS:    started,
		StartedBy:  models.ActorKioskScan,
	}
	f.sessions.activeCount = 1

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEndedBanned, result.Outcome)
	assert.True(t, f.roster.banned["student-a"])
}

func TestHandleScanOnTimeReturnNotBanned(t *testing.T) {
	settings := openSettings()
	settings.AutoBanOverdue = true
	f := newAdmissionFixture(settings)

	_, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEnded, result.Outcome)
	assert.False(t, f.roster.banned["student-a"])
}

func TestHandleScanRejectsEmptyStudentRef(t *testing.T) {
	f := newAdmissionFixture(openSettings())

	_, err := f.service.HandleScan(context.Background(), "tenant-1", "")
	assert.Error(t, err)
}

func TestHandleScanUsesRosterName(t *testing.T) {
	f := newAdmissionFixture(openSettings())
	f.roster.names["student-a"] = "Ada Lovelace"

	result, err := f.service.HandleScan(context.Background(), "tenant-1", "student-a")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", result.StudentName)
}

func TestPromoteAfterRelease(t *testing.T) {
	settings := openSettings()
	settings.AutoPromoteQueue = true
	f := newAdmissionFixture(settings)
	f.queue.refs = []string{"student-b"}

	promoted := f.service.PromoteAfterRelease(context.Background(), "tenant-1")
	assert.Equal(t, "student-b", promoted)
	assert.Empty(t, f.queue.refs)
	require.Len(t, f.sessions.inserted, 1)
	assert.Equal(t, models.ActorAutoPromote, f.sessions.inserted[0].StartedBy)
}
