package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartticket/ticket-api/internal/domain"
)

func newRedisIdempotency(t *testing.T, now time.Time) (IdempotencyRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIdempotencyRepository(client, func() time.Time { return now }), mr
}

func redisRecord(now time.Time, ttl time.Duration) *domain.IdempotencyRecord {
	return &domain.IdempotencyRecord{
		ID:           "0b9f4c1e-6a53-4d53-9a53-3f1f3c0f8a11",
		UserID:       "5d1c2c86-22cf-4d44-9f59-7a52f4fbd6a2",
		Key:          "retry-7",
		Path:         "/api/tickets",
		Method:       "POST",
		StatusCode:   201,
		ResponseBody: []byte(`{"data":{"id":"t-1"}}`),
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

func TestRedisIdempotencyInsertFindDelete(t *testing.T) {
	now := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)
	repo, mr := newRedisIdempotency(t, now)
	ctx := context.Background()
	record := redisRecord(now, time.Hour)
	scope := IdempotencyScope{UserID: record.UserID, Key: record.Key, Path: record.Path, Method: record.Method}

	require.NoError(t, repo.Insert(ctx, record))
	assert.Equal(t, time.Hour, mr.TTL(RedisIdempotencyKey(scope)))

	found, err := repo.Find(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, record.StatusCode, found.StatusCode)
	assert.Equal(t, record.ResponseBody, found.ResponseBody)
	assert.True(t, record.ExpiresAt.Equal(found.ExpiresAt))

	other := scope
	other.Method = "PUT"
	_, err = repo.Find(ctx, other)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, record))
	_, err = repo.Find(ctx, scope)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisIdempotencyFirstInsertWins(t *testing.T) {
	now := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)
	repo, _ := newRedisIdempotency(t, now)
	ctx := context.Background()
	first := redisRecord(now, time.Hour)
	second := redisRecord(now, time.Hour)
	second.StatusCode = 200

	require.NoError(t, repo.Insert(ctx, first))
	assert.ErrorIs(t, repo.Insert(ctx, second), ErrDuplicate)

	found, err := repo.Find(ctx, IdempotencyScope{UserID: first.UserID, Key: first.Key, Path: first.Path, Method: first.Method})
	require.NoError(t, err)
	assert.Equal(t, 201, found.StatusCode)
}

func TestRedisIdempotencyKeysExpire(t *testing.T) {
	now := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)
	repo, mr := newRedisIdempotency(t, now)
	ctx := context.Background()
	record := redisRecord(now, time.Hour)
	scope := IdempotencyScope{UserID: record.UserID, Key: record.Key, Path: record.Path, Method: record.Method}

	require.NoError(t, repo.Insert(ctx, record))
	mr.FastForward(time.Hour + time.Second)
	_, err := repo.Find(ctx, scope)
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := repo.DeleteExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRedisIdempotencySkipsAlreadyExpiredRecord(t *testing.T) {
	now := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)
	repo, mr := newRedisIdempotency(t, now)
	record := redisRecord(now, -time.Minute)
	scope := IdempotencyScope{UserID: record.UserID, Key: record.Key, Path: record.Path, Method: record.Method}

	require.NoError(t, repo.Insert(context.Background(), record))
	assert.False(t, mr.Exists(RedisIdempotencyKey(scope)))
}
