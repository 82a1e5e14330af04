package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smartticket/ticket-api/internal/events"
)

// Publisher delivers an encoded event to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher publishes with Redis PUBLISH.
func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// EventRelay forwards dispatcher events to an external channel. Without a
// publisher it only logs them.
type EventRelay struct {
	publisher Publisher
	channel   string
	logger    *zap.Logger
}

// NewEventRelay creates the relay. publisher may be nil.
func NewEventRelay(publisher Publisher, channel string, logger *zap.Logger) *EventRelay {
	return &EventRelay{publisher: publisher, channel: channel, logger: logger.Named("relay")}
}

// RegisterHandlers subscribes the relay to every event type.
func (r *EventRelay) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range events.AllTypes {
		dispatcher.Subscribe(eventType, r.handle)
	}
}

func (r *EventRelay) handle(ctx context.Context, event events.Event) error {
	if r.publisher == nil {
		r.logger.Debug("event",
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.String("correlation_id", event.CorrelationID),
		)
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := r.publisher.Publish(ctx, r.channel, payload); err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	return nil
}
