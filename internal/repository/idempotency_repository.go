package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartticket/ticket-api/internal/domain"
)

// IdempotencyScope is the natural key of a ledger entry.
type IdempotencyScope struct {
	UserID string
	Key    string
	Path   string
	Method string
}

// IdempotencyRepository persists replayable POST outcomes.
type IdempotencyRepository interface {
	// Find returns ErrNotFound when no record exists for scope.
	Find(ctx context.Context, scope IdempotencyScope) (*domain.IdempotencyRecord, error)
	// Insert returns ErrDuplicate when a record for the scope already exists.
	Insert(ctx context.Context, record *domain.IdempotencyRecord) error
	Delete(ctx context.Context, record *domain.IdempotencyRecord) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type idempotencyRepository struct {
	pool *pgxpool.Pool
}

// NewIdempotencyRepository constructs the Postgres ledger store.
func NewIdempotencyRepository(pool *pgxpool.Pool) IdempotencyRepository {
	return &idempotencyRepository{pool: pool}
}

func (r *idempotencyRepository) Find(ctx context.Context, scope IdempotencyScope) (*domain.IdempotencyRecord, error) {
	const query = `
        SELECT id, user_id, key, path, method, status_code, response_body, created_at, expires_at
        FROM idempotency_keys
        WHERE user_id=$1 AND key=$2 AND path=$3 AND method=$4`
	var record domain.IdempotencyRecord
	if err := r.pool.QueryRow(ctx, query, scope.UserID, scope.Key, scope.Path, scope.Method).Scan(
		&record.ID,
		&record.UserID,
		&record.Key,
		&record.Path,
		&record.Method,
		&record.StatusCode,
		&record.ResponseBody,
		&record.CreatedAt,
		&record.ExpiresAt,
	); err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (r *idempotencyRepository) Insert(ctx context.Context, record *domain.IdempotencyRecord) error {
	const query = `
        INSERT INTO idempotency_keys (id, user_id, key, path, method, status_code, response_body, created_at, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (user_id, key, path, method) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.Key,
		record.Path,
		record.Method,
		record.StatusCode,
		record.ResponseBody,
		record.CreatedAt,
		record.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert idempotency record: %w", translate(err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *idempotencyRepository) Delete(ctx context.Context, record *domain.IdempotencyRecord) error {
	const query = `DELETE FROM idempotency_keys WHERE id=$1`
	if _, err := r.pool.Exec(ctx, query, record.ID); err != nil {
		return fmt.Errorf("delete idempotency record: %w", err)
	}
	return nil
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM idempotency_keys WHERE expires_at <= $1`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("sweep idempotency records: %w", err)
	}
	return cmd.RowsAffected(), nil
}
