package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smartticket/ticket-api/internal/config"
	"github.com/smartticket/ticket-api/internal/observability"
	"github.com/smartticket/ticket-api/internal/persistence"
)

// runtime holds what a command needs once configuration is loaded.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
	stores persistence.Stores
	close  func()
}

// openRuntime is swapped in tests.
var openRuntime = openConfiguredRuntime

// openConfiguredRuntime connects to the configured stores. Commands that
// change data refuse to run against the in-memory stores, since nothing
// they write would outlive the process.
func openConfiguredRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	if !pg.Enabled() {
		return nil, fmt.Errorf("ticketctl needs POSTGRES_DSN: %w", persistence.ErrPostgresDisabled)
	}
	rdb := persistence.NewRedis(cfg.Redis, logger)

	stores, err := persistence.OpenStores(*cfg, pg, rdb, time.Now)
	if err != nil {
		pg.Close()
		rdb.Close()
		return nil, err
	}
	return &runtime{
		cfg:    cfg,
		logger: logger,
		pg:     pg,
		stores: stores,
		close: func() {
			rdb.Close()
			pg.Close()
			_ = logger.Sync()
		},
	}, nil
}
