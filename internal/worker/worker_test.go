package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartticket/ticket-api/internal/events"
	"github.com/smartticket/ticket-api/internal/idempotency"
	"github.com/smartticket/ticket-api/internal/repository/memstore"
)

type capturePublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (p *capturePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestEventRelayPublishesEveryType(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &capturePublisher{}
	NewEventRelay(publisher, "ticket-events", zap.NewNop()).RegisterHandlers(dispatcher)

	ctx := context.Background()
	for _, typ := range events.AllTypes {
		require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: string(typ), Type: typ, TicketID: "t-1"}))
	}

	require.Len(t, publisher.payloads, len(events.AllTypes))
	assert.Equal(t, "ticket-events", publisher.channels[0])
	var decoded events.Event
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &decoded))
	assert.Equal(t, events.AllTypes[0], decoded.Type)
	assert.Equal(t, "t-1", decoded.TicketID)
}

func TestEventRelayReportsPublishErrors(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewEventRelay(&capturePublisher{err: errors.New("connection refused")}, "ch", zap.NewNop()).RegisterHandlers(dispatcher)

	err := dispatcher.Publish(context.Background(), events.Event{ID: "e-1", Type: events.EventTicketMutated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestEventRelayWithoutPublisherOnlyLogs(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewEventRelay(nil, "ch", zap.NewNop()).RegisterHandlers(dispatcher)

	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{ID: "e-1", Type: events.EventTicketMutated}))
}

func TestIdempotencySweeperRemovesExpired(t *testing.T) {
	store := memstore.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ledger := idempotency.NewLedger(store.Idempotency(), idempotency.Options{
		ExpirationHours: 1,
		Now:             func() time.Time { return now },
	}, zap.NewNop())
	ctx := context.Background()

	stored, err := ledger.Record(ctx, idempotency.Scope{UserID: "u", Key: "k", Path: "/api/tickets", Method: "POST"}, 201, []byte(`{}`))
	require.NoError(t, err)
	require.True(t, stored)

	sweeper := NewIdempotencySweeper(ledger, time.Minute, zap.NewNop())
	removed, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	now = now.Add(2 * time.Hour)
	removed, err = sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

type countingSweeper struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSweeper) SweepExpired(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 0, nil
}

func TestIdempotencySweeperRunStopsWithContext(t *testing.T) {
	sweeper := &countingSweeper{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewIdempotencySweeper(sweeper, time.Hour, zap.NewNop()).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		sweeper.mu.Lock()
		defer sweeper.mu.Unlock()
		return sweeper.calls == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
