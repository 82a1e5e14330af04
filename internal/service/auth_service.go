package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartticket/ticket-api/internal/auth"
	"github.com/smartticket/ticket-api/internal/config"
	"github.com/smartticket/ticket-api/internal/domain"
	"github.com/smartticket/ticket-api/internal/repository"
	apperrors "github.com/smartticket/ticket-api/pkg/util/errorutil"
)

const minPasswordLength = 8

// AuthService coordinates registration and login flows.
type AuthService struct {
	users           repository.UserRepository
	tokenMgr        *auth.TokenManager
	bcryptCost      int
	maxFailed       int
	lockoutDuration time.Duration
	now             func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Now      func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	maxFailed := cfg.Auth.MaxFailedLogins
	if maxFailed <= 0 {
		maxFailed = 5
	}
	return &AuthService{
		users:           deps.UserRepo,
		tokenMgr:        auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.App.Name),
		bcryptCost:      cfg.Auth.BcryptCost,
		maxFailed:       maxFailed,
		lockoutDuration: cfg.Auth.LockoutDuration(),
		now:             now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new account with the User role and signs it in.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, domain.AccessToken, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, domain.AccessToken{}, apperrors.NewValidationError("email is invalid", map[string]any{"field": "email"})
	}
	if len(password) < minPasswordLength {
		return nil, domain.AccessToken{}, apperrors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", minPasswordLength),
			map[string]any{"field": "password"},
		)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.AccessToken{}, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.AccessToken{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, domain.AccessToken{}, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.AccessToken{}, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
		}
		return nil, domain.AccessToken{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.AccessToken{}, fmt.Errorf("sign token: %w", err)
	}
	return user, token, nil
}

// Login authenticates by email and password. Repeated failures lock the
// account for the configured duration.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, domain.AccessToken, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.AccessToken{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, domain.AccessToken{}, fmt.Errorf("lookup user: %w", err)
	}

	now := s.now().UTC()
	if user.IsLocked(now) {
		return nil, domain.AccessToken{}, apperrors.NewAccountLocked(user.LockoutUntil.UTC().Format(time.RFC3339))
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, domain.AccessToken{}, fmt.Errorf("verify password: %w", err)
		}
		user.FailedLoginCount++
		if user.FailedLoginCount >= s.maxFailed {
			until := now.Add(s.lockoutDuration)
			user.LockoutUntil = &until
			user.FailedLoginCount = 0
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, domain.AccessToken{}, fmt.Errorf("record failed login: %w", err)
		}
		if user.LockoutUntil != nil && user.IsLocked(now) {
			return nil, domain.AccessToken{}, apperrors.NewAccountLocked(user.LockoutUntil.UTC().Format(time.RFC3339))
		}
		return nil, domain.AccessToken{}, apperrors.NewUnauthorized("invalid credentials")
	}

	if user.FailedLoginCount != 0 || user.LockoutUntil != nil {
		user.FailedLoginCount = 0
		user.LockoutUntil = nil
		if err := s.users.Update(ctx, user); err != nil {
			return nil, domain.AccessToken{}, fmt.Errorf("reset failed logins: %w", err)
		}
	}

	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.AccessToken{}, fmt.Errorf("sign token: %w", err)
	}
	return user, token, nil
}

// Me returns the account behind userID.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// SetRole changes the role of the account with the given email.
func (s *AuthService) SetRole(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(role)})
	}
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// IssueToken signs a fresh token for an existing account.
func (s *AuthService) IssueToken(ctx context.Context, email string) (domain.AccessToken, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.AccessToken{}, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return domain.AccessToken{}, fmt.Errorf("lookup user: %w", err)
	}
	return s.tokenMgr.GenerateToken(user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
