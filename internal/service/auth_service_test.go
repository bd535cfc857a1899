package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
)

type mockAuthRepo struct {
	tenant *models.Tenant
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.Tenant, error) {
	if m.tenant == nil || m.tenant.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.tenant, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	if m.tenant == nil || m.tenant.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.tenant, nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{tenant: &models.Tenant{
		ID:           "tenant-1",
		Email:        "teacher@example.com",
		PasswordHash: string(hash),
		RoomName:     "Room 204",
		Active:       true,
	}}
	service := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "hallpass-api",
	})
	return service, repo
}

func TestLoginSuccess(t *testing.T) {
	service, _ := newAuthFixture(t)

	resp, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "tenant-1", resp.Tenant.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	service, _ := newAuthFixture(t)

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	service, _ := newAuthFixture(t)

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-horse",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveTenant(t *testing.T) {
	service, repo := newAuthFixture(t)
	repo.tenant.Active = false

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@example.com",
		Password: "correct-horse",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsInvalidPayload(t *testing.T) {
	service, _ := newAuthFixture(t)

	_, err := service.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	assert.Error(t, err)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	service, _ := newAuthFixture(t)

	resp, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	claims, err := service.ValidateToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "teacher@example.com", claims.Email)
}

func TestValidateTokenGarbage(t *testing.T) {
	service, _ := newAuthFixture(t)

	_, err := service.ValidateToken(context.Background(), "not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
