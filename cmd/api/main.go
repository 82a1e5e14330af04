package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/smartticket/ticket-api/internal/api/http"
	"github.com/smartticket/ticket-api/internal/api/http/handlers"
	"github.com/smartticket/ticket-api/internal/auth"
	"github.com/smartticket/ticket-api/internal/config"
	"github.com/smartticket/ticket-api/internal/events"
	"github.com/smartticket/ticket-api/internal/idempotency"
	"github.com/smartticket/ticket-api/internal/observability"
	"github.com/smartticket/ticket-api/internal/persistence"
	"github.com/smartticket/ticket-api/internal/service"
	"github.com/smartticket/ticket-api/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if _, err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	stores, err := persistence.OpenStores(*cfg, pg, rdb, time.Now)
	if err != nil {
		logger.Fatal("failed to open stores", zap.Error(err))
	}
	logger.Info("stores ready",
		zap.Bool("postgres", pg.Enabled()),
		zap.String("idempotency_backend", cfg.Idempotency.Backend),
	)

	dispatcher := events.NewInMemoryDispatcher()
	var publisher worker.Publisher
	if rdb.Enabled() {
		publisher = worker.NewRedisPublisher(rdb.Client)
	}
	worker.NewEventRelay(publisher, cfg.Events.RedisChannel, logger).RegisterHandlers(dispatcher)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: stores.Users})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     stores.Tickets,
		EventRepo:      stores.Events,
		CommentRepo:    stores.Comments,
		AttachmentRepo: stores.Attachments,
	})
	audited := service.NewAuditedTicketService(ticketService, service.NewAuditLog(logger, dispatcher))
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), stores.Users)

	ledger := idempotency.NewLedger(stores.Idempotency, idempotency.Options{
		ExpirationHours: cfg.Idempotency.ExpirationHours,
	}, logger)
	go worker.NewIdempotencySweeper(ledger, cfg.Idempotency.SweepInterval(), logger).Run(ctx)

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App.Name, logger, metrics)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
		"postgres": pg,
		"redis":    rdb,
	}, metrics)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(audited, ticketService),
		AuthMiddleware: authMiddleware,
		Idempotency:    httptransport.Idempotency(ledger, logger),
		TicketRepo:     stores.Tickets,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
