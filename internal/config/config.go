package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App         AppConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Logger      LoggerConfig
	Auth        AuthConfig
	Idempotency IdempotencyConfig
	Events      EventsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory stores.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	MaxFailedLogins       int
	LockoutMinutes        int
}

// Idempotency ledger backends.
const (
	IdempotencyBackendPostgres = "postgres"
	IdempotencyBackendRedis    = "redis"
	IdempotencyBackendMemory   = "memory"
)

// IdempotencyConfig tunes the idempotency ledger.
type IdempotencyConfig struct {
	Backend           string
	ExpirationHours   int
	SweepEveryMinutes int
}

// EventsConfig controls where ticket events are relayed.
type EventsConfig struct {
	RedisChannel string
}

// Load reads configuration from environment variables, applying defaults
// where possible. Keys found in the YAML file named by CONFIG_FILE act as
// defaults below the real environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(src.get("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	dsn := src.get("POSTGRES_DSN", "")
	defaultBackend := IdempotencyBackendPostgres
	if dsn == "" {
		defaultBackend = IdempotencyBackendMemory
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  src.get("APP_NAME", "smartticket-api"),
			Env:                   src.get("APP_ENV", "development"),
			Host:                  src.get("APP_HOST", "0.0.0.0"),
			Port:                  src.get("APP_PORT", "8080"),
			Version:               src.get("APP_VERSION", "dev"),
			RequestTimeoutSeconds: src.getInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            dsn,
			MaxConns:       int32(src.getInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(src.getInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  src.getBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  src.get("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(src.getInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(src.getInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Enabled:  src.getBool("REDIS_ENABLED", false),
			Addr:     src.get("REDIS_ADDR", "127.0.0.1:6379"),
			Password: src.get("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: src.get("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             src.get("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: src.getInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            src.getInt("AUTH_BCRYPT_COST", 12),
			MaxFailedLogins:       src.getInt("AUTH_MAX_FAILED_LOGINS", 5),
			LockoutMinutes:        src.getInt("AUTH_LOCKOUT_MINUTES", 15),
		},
		Idempotency: IdempotencyConfig{
			Backend:           strings.ToLower(src.get("IDEMPOTENCY_BACKEND", defaultBackend)),
			ExpirationHours:   src.getInt("IDEMPOTENCY_EXPIRATION_HOURS", 24),
			SweepEveryMinutes: src.getInt("IDEMPOTENCY_SWEEP_EVERY_MINUTES", 60),
		},
		Events: EventsConfig{
			RedisChannel: src.get("EVENTS_REDIS_CHANNEL", "smartticket.ticket-events"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot run with.
func (c *Config) Validate() error {
	switch c.Idempotency.Backend {
	case IdempotencyBackendMemory:
	case IdempotencyBackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("IDEMPOTENCY_BACKEND=postgres requires POSTGRES_DSN")
		}
	case IdempotencyBackendRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("IDEMPOTENCY_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("invalid IDEMPOTENCY_BACKEND %q", c.Idempotency.Backend)
	}
	if c.Idempotency.ExpirationHours < 1 {
		c.Idempotency.ExpirationHours = 1
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("AUTH_JWT_SECRET must not be empty")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// LockoutDuration returns how long an account stays locked.
func (a AuthConfig) LockoutDuration() time.Duration {
	return time.Duration(a.LockoutMinutes) * time.Minute
}

// SweepInterval returns the period of the expired-record sweep.
func (i IdempotencyConfig) SweepInterval() time.Duration {
	if i.SweepEveryMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(i.SweepEveryMinutes) * time.Minute
}

// source resolves keys from the environment first, then file defaults.
type source struct {
	defaults map[string]string
}

func newSource(path string) (*source, error) {
	src := &source{defaults: map[string]string{}}
	if path == "" {
		return src, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	for key, value := range raw {
		if value == nil {
			continue
		}
		src.defaults[strings.ToUpper(key)] = fmt.Sprint(value)
	}
	return src, nil
}

func (s *source) get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val, ok := s.defaults[key]; ok && val != "" {
		return val
	}
	return fallback
}

func (s *source) getInt(key string, fallback int) int {
	val := s.get(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s *source) getBool(key string, fallback bool) bool {
	val := s.get(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
