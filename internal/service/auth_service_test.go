package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartticket/ticket-api/internal/config"
	"github.com/smartticket/ticket-api/internal/domain"
	"github.com/smartticket/ticket-api/internal/repository/memstore"
	apperrors "github.com/smartticket/ticket-api/pkg/util/errorutil"
)

func newAuthService(t *testing.T) (*AuthService, *memstore.Store, *fakeClock) {
	t.Helper()
	store := memstore.New()
	clock := &fakeClock{now: baseTime}
	cfg := config.Config{
		App: config.AppConfig{Name: "smartticket-test"},
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 30,
			BcryptCost:            bcrypt.MinCost,
			MaxFailedLogins:       3,
			LockoutMinutes:        15,
		},
	}
	return NewAuthService(cfg, AuthDependencies{UserRepo: store.Users(), Now: clock.Now}), store, clock
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "  Alice@Example.COM ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotEqual(t, "correct horse", user.PasswordHash)
	assert.NotEmpty(t, token.Token)

	claims, err := svc.TokenManager().ParseToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())

	_, _, err = svc.Register(ctx, "alice@example.com", "another password")
	requireCode(t, err, apperrors.CodeConflict)

	loggedIn, _, err := svc.Login(ctx, "ALICE@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	me, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.Email)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, _, err := svc.Register(context.Background(), "not-an-email", "long enough")
	requireCode(t, err, apperrors.CodeValidationFailed)
	_, _, err = svc.Register(context.Background(), "bob@example.com", "short")
	requireCode(t, err, apperrors.CodeValidationFailed)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _, _ := newAuthService(t)
	_, _, err := svc.Login(context.Background(), "ghost@example.com", "whatever1")
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestLoginLockout(t *testing.T) {
	svc, store, clock := newAuthService(t)
	ctx := context.Background()
	user, _, err := svc.Register(ctx, "carol@example.com", "right password")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, _, err = svc.Login(ctx, "carol@example.com", "wrong password")
		requireCode(t, err, apperrors.CodeUnauthorized)
	}
	_, _, err = svc.Login(ctx, "carol@example.com", "wrong password")
	requireCode(t, err, apperrors.CodeAccountLocked)
	assert.Equal(t, 423, apperrors.ToDomainError(err).HTTPStatus)

	// Even the right password is refused while locked.
	_, _, err = svc.Login(ctx, "carol@example.com", "right password")
	requireCode(t, err, apperrors.CodeAccountLocked)

	clock.Advance(16 * time.Minute)
	_, _, err = svc.Login(ctx, "carol@example.com", "right password")
	require.NoError(t, err)

	stored, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginCount)
	assert.Nil(t, stored.LockoutUntil)
}

func TestSetRole(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	_, _, err := svc.Register(ctx, "dave@example.com", "password123")
	require.NoError(t, err)

	promoted, err := svc.SetRole(ctx, "Dave@example.com", domain.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())

	_, err = svc.SetRole(ctx, "dave@example.com", "Root")
	requireCode(t, err, apperrors.CodeValidationFailed)
	_, err = svc.SetRole(ctx, "nobody@example.com", domain.RoleAdmin)
	requireCode(t, err, apperrors.CodeNotFound)

	token, err := svc.IssueToken(ctx, "dave@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, token.Role)
}
