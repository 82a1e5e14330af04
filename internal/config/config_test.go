package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads so the host environment does not
// leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "APP_NAME", "APP_PORT", "POSTGRES_DSN", "REDIS_ENABLED", "REDIS_DB",
		"LOG_LEVEL", "AUTH_JWT_SECRET", "AUTH_MAX_FAILED_LOGINS", "AUTH_LOCKOUT_MINUTES",
		"IDEMPOTENCY_BACKEND", "IDEMPOTENCY_EXPIRATION_HOURS", "IDEMPOTENCY_SWEEP_EVERY_MINUTES",
		"EVENTS_REDIS_CHANNEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "smartticket-api", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, IdempotencyBackendMemory, cfg.Idempotency.Backend)
	assert.Equal(t, 24, cfg.Idempotency.ExpirationHours)
	assert.Equal(t, time.Hour, cfg.Idempotency.SweepInterval())
	assert.Equal(t, 5, cfg.Auth.MaxFailedLogins)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LockoutDuration())
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadYAMLDefaultsBelowEnvironment(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "smartticket.yaml")
	content := `
app_name: from-file
app_port: 9090
idempotency_expiration_hours: 48
auth_lockout_minutes: 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.App.Name)
	assert.Equal(t, "7070", cfg.App.Port)
	assert.Equal(t, 48, cfg.Idempotency.ExpirationHours)
	assert.Equal(t, 30*time.Minute, cfg.Auth.LockoutDuration())
}

func TestLoadRejectsBadConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "memory",
			cfg:  Config{Auth: AuthConfig{JWTSecret: "s"}, Idempotency: IdempotencyConfig{Backend: IdempotencyBackendMemory, ExpirationHours: 24}},
		},
		{
			name:    "postgres without dsn",
			cfg:     Config{Auth: AuthConfig{JWTSecret: "s"}, Idempotency: IdempotencyConfig{Backend: IdempotencyBackendPostgres}},
			wantErr: true,
		},
		{
			name:    "redis disabled",
			cfg:     Config{Auth: AuthConfig{JWTSecret: "s"}, Idempotency: IdempotencyConfig{Backend: IdempotencyBackendRedis}},
			wantErr: true,
		},
		{
			name: "redis enabled",
			cfg: Config{
				Auth:        AuthConfig{JWTSecret: "s"},
				Redis:       RedisConfig{Enabled: true},
				Idempotency: IdempotencyConfig{Backend: IdempotencyBackendRedis, ExpirationHours: 1},
			},
		},
		{
			name:    "unknown backend",
			cfg:     Config{Auth: AuthConfig{JWTSecret: "s"}, Idempotency: IdempotencyConfig{Backend: "disk"}},
			wantErr: true,
		},
		{
			name:    "empty secret",
			cfg:     Config{Idempotency: IdempotencyConfig{Backend: IdempotencyBackendMemory}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateClampsExpiration(t *testing.T) {
	cfg := Config{Auth: AuthConfig{JWTSecret: "s"}, Idempotency: IdempotencyConfig{Backend: IdempotencyBackendMemory, ExpirationHours: 0}}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Idempotency.ExpirationHours)
}
