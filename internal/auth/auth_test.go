package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartticket/ticket-api/internal/domain"
	"github.com/smartticket/ticket-api/internal/repository/memstore"
	apperrors "github.com/smartticket/ticket-api/pkg/util/errorutil"
)

const testUserID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5, "smartticket")
	user := &domain.User{ID: testUserID, Role: domain.RoleAdmin}

	token, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.Equal(t, testUserID, token.UserID)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), token.ExpiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, testUserID, claims.UserID())
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, "smartticket", claims.Issuer)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	issued, err := NewTokenManager("secret-a", 5, "").GenerateToken(&domain.User{ID: testUserID})
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 5, "").ParseToken(issued.Token)
	require.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	claims := &Claims{
		Role: domain.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUserID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 5, "").ParseToken(signed)
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.ErrorIs(t, ComparePassword(hash, "battery staple"), ErrPasswordMismatch)
	assert.NotErrorIs(t, ComparePassword("not-a-bcrypt-hash", "x"), ErrPasswordMismatch)
}

func TestPasswordHashingOutOfRangeCost(t *testing.T) {
	hash, err := HashPassword("correct horse", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func newProtectedApp(t *testing.T, store *memstore.Store, tm *TokenManager) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	mw := NewAuthMiddleware(tm, store.Users())
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.SendString(p.UserID())
	})
	app.Get("/admin", mw.Handle, RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, path, bearer string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthMiddleware(t *testing.T) {
	store := memstore.New()
	user := &domain.User{ID: testUserID, Email: "u@example.com", Role: domain.RoleUser}
	require.NoError(t, store.Users().Create(context.Background(), user))
	tm := NewTokenManager("secret", 5, "")
	app := newProtectedApp(t, store, tm)

	token, err := tm.GenerateToken(user)
	require.NoError(t, err)

	status, body := doGet(t, app, "/me", token.Token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, testUserID, body)

	status, body = doGet(t, app, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, body)

	status, _ = doGet(t, app, "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = doGet(t, app, "/admin", token.Token)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeForbidden, body)

	user.Role = domain.RoleAdmin
	require.NoError(t, store.Users().Update(context.Background(), user))
	status, _ = doGet(t, app, "/admin", token.Token)
	assert.Equal(t, http.StatusOK, status)
}

func TestAuthMiddlewareUnknownUser(t *testing.T) {
	store := memstore.New()
	tm := NewTokenManager("secret", 5, "")
	app := newProtectedApp(t, store, tm)

	token, err := tm.GenerateToken(&domain.User{ID: testUserID})
	require.NoError(t, err)

	status, _ := doGet(t, app, "/me", token.Token)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoleGuardsUseStoredPrincipal(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		switch c.Get("X-Test-Role") {
		case string(domain.RoleAdmin):
			SetPrincipal(c, &Principal{User: &domain.User{ID: testUserID, Role: domain.RoleAdmin}})
		case string(domain.RoleUser):
			SetPrincipal(c, &Principal{User: &domain.User{ID: testUserID, Role: domain.RoleUser}})
		case "empty":
			SetPrincipal(c, &Principal{})
		}
		return c.Next()
	})
	app.Get("/any", RequireAnyRole(), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/admin", RequireAdmin(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	status := func(path, role string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Test-Role", role)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, status("/any", "User"))
	assert.Equal(t, http.StatusUnauthorized, status("/any", "empty"))
	assert.Equal(t, http.StatusUnauthorized, status("/any", ""))
	assert.Equal(t, http.StatusForbidden, status("/admin", "User"))
	assert.Equal(t, http.StatusOK, status("/admin", "Admin"))
}
