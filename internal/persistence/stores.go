package persistence

import (
	"fmt"
	"time"

	"github.com/smartticket/ticket-api/internal/config"
	"github.com/smartticket/ticket-api/internal/repository"
	"github.com/smartticket/ticket-api/internal/repository/memstore"
)

// Stores is the set of repositories the service layer runs against.
type Stores struct {
	Tickets     repository.TicketRepository
	Events      repository.TicketEventRepository
	Comments    repository.CommentRepository
	Attachments repository.AttachmentRepository
	Users       repository.UserRepository
	Idempotency repository.IdempotencyRepository
}

// OpenStores picks Postgres-backed repositories when pg holds a pool and
// the in-memory store otherwise. The idempotency ledger follows
// cfg.Idempotency.Backend.
func OpenStores(cfg config.Config, pg *Postgres, rdb *Redis, now func() time.Time) (Stores, error) {
	var stores Stores
	var mem *memstore.Store
	if pg.Enabled() {
		pool := pg.PoolHandle()
		stores = Stores{
			Tickets:     repository.NewTicketRepository(pool),
			Events:      repository.NewTicketEventRepository(pool),
			Comments:    repository.NewCommentRepository(pool),
			Attachments: repository.NewAttachmentRepository(pool),
			Users:       repository.NewUserRepository(pool),
		}
	} else {
		mem = memstore.New()
		stores = Stores{
			Tickets:     mem.Tickets(),
			Events:      mem.Events(),
			Comments:    mem.Comments(),
			Attachments: mem.Attachments(),
			Users:       mem.Users(),
		}
	}

	switch cfg.Idempotency.Backend {
	case config.IdempotencyBackendPostgres:
		if !pg.Enabled() {
			return Stores{}, fmt.Errorf("idempotency backend postgres: %w", ErrPostgresDisabled)
		}
		stores.Idempotency = repository.NewIdempotencyRepository(pg.PoolHandle())
	case config.IdempotencyBackendRedis:
		if !rdb.Enabled() {
			return Stores{}, fmt.Errorf("idempotency backend redis: %w", ErrRedisDisabled)
		}
		stores.Idempotency = repository.NewRedisIdempotencyRepository(rdb.Client, now)
	default:
		if mem == nil {
			mem = memstore.New()
		}
		stores.Idempotency = mem.Idempotency()
	}
	return stores, nil
}
