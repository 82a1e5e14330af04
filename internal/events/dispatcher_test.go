package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInvokesSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []string
	d.Subscribe(EventTicketMutated, func(_ context.Context, e Event) error {
		got = append(got, "a:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketMutated, func(_ context.Context, e Event) error {
		got = append(got, "b:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketMutationRejected, func(context.Context, Event) error {
		got = append(got, "rejected")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketMutated, TicketID: "t1"}))
	assert.Equal(t, []string{"a:t1", "b:t1"}, got)
}

func TestPublishRunsEveryHandlerAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	first := errors.New("first")
	calls := 0
	d.Subscribe(EventTicketMutated, func(context.Context, Event) error {
		calls++
		return first
	})
	d.Subscribe(EventTicketMutated, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketMutated})
	require.ErrorIs(t, err, first)
	assert.Equal(t, 2, calls)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketMutationRejected}))
}
