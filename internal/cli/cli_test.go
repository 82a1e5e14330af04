package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartticket/ticket-api/internal/config"
	"github.com/smartticket/ticket-api/internal/domain"
	"github.com/smartticket/ticket-api/internal/persistence"
	"github.com/smartticket/ticket-api/internal/repository/memstore"
	"github.com/smartticket/ticket-api/internal/service"
)

func useMemoryRuntime(t *testing.T) (*memstore.Store, *config.Config) {
	t.Helper()
	store := memstore.New()
	cfg := &config.Config{
		App: config.AppConfig{Name: "ticketctl-test"},
		Auth: config.AuthConfig{
			JWTSecret:             "cli-secret",
			AccessTokenTTLMinutes: 30,
			BcryptCost:            bcrypt.MinCost,
		},
		Idempotency: config.IdempotencyConfig{Backend: config.IdempotencyBackendMemory, ExpirationHours: 24},
	}
	previous := openRuntime
	openRuntime = func(context.Context) (*runtime, error) {
		return &runtime{
			cfg:    cfg,
			logger: zap.NewNop(),
			stores: persistence.Stores{
				Tickets:     store.Tickets(),
				Events:      store.Events(),
				Comments:    store.Comments(),
				Attachments: store.Attachments(),
				Users:       store.Users(),
				Idempotency: store.Idempotency(),
			},
			close: func() {},
		}, nil
	}
	t.Cleanup(func() { openRuntime = previous })
	return store, cfg
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUserPromote(t *testing.T) {
	store, cfg := useMemoryRuntime(t)
	ctx := context.Background()
	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: store.Users()})
	registered, _, err := authService.Register(ctx, "ops@example.com", "correct-horse")
	require.NoError(t, err)

	out, err := run(t, "user", "promote", "OPS@example.com", "--role", "Admin")
	require.NoError(t, err)
	assert.Contains(t, out, "is now Admin")

	user, err := store.Users().GetByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestUserPromoteUnknownEmail(t *testing.T) {
	useMemoryRuntime(t)

	_, err := run(t, "user", "promote", "nobody@example.com", "--role", "Admin")
	require.Error(t, err)
}

func TestTokenIssue(t *testing.T) {
	store, cfg := useMemoryRuntime(t)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: store.Users()})
	registered, _, err := authService.Register(context.Background(), "dev@example.com", "correct-horse")
	require.NoError(t, err)

	out, err := run(t, "token", "issue", "dev@example.com")
	require.NoError(t, err)

	claims, err := authService.TokenManager().ParseToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID())
}

func TestSweepIdempotencyOnEmptyLedger(t *testing.T) {
	useMemoryRuntime(t)

	out, err := run(t, "sweep-idempotency")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 0 expired record(s)")
}

func TestVersion(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ticketctl 1.2.3\n", out)
}
