package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smartticket/ticket-api/internal/domain"
)

const idempotencyKeyPrefix = "idempotency:"

type redisIdempotencyRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisIdempotencyRepository stores ledger entries as Redis keys that
// expire on their own.
func NewRedisIdempotencyRepository(client *redis.Client, now func() time.Time) IdempotencyRepository {
	if now == nil {
		now = time.Now
	}
	return &redisIdempotencyRepository{client: client, now: now}
}

// RedisIdempotencyKey renders the Redis key for scope.
func RedisIdempotencyKey(scope IdempotencyScope) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", idempotencyKeyPrefix, scope.UserID, scope.Method, scope.Path, scope.Key)
}

func (r *redisIdempotencyRepository) Find(ctx context.Context, scope IdempotencyScope) (*domain.IdempotencyRecord, error) {
	raw, err := r.client.Get(ctx, RedisIdempotencyKey(scope)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	var record domain.IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &record, nil
}

func (r *redisIdempotencyRepository) Insert(ctx context.Context, record *domain.IdempotencyRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	ttl := record.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	scope := IdempotencyScope{UserID: record.UserID, Key: record.Key, Path: record.Path, Method: record.Method}
	ok, err := r.client.SetNX(ctx, RedisIdempotencyKey(scope), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("set idempotency record: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

func (r *redisIdempotencyRepository) Delete(ctx context.Context, record *domain.IdempotencyRecord) error {
	scope := IdempotencyScope{UserID: record.UserID, Key: record.Key, Path: record.Path, Method: record.Method}
	if err := r.client.Del(ctx, RedisIdempotencyKey(scope)).Err(); err != nil {
		return fmt.Errorf("delete idempotency record: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op; Redis evicts expired keys itself.
func (r *redisIdempotencyRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
