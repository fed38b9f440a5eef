package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventticketing/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeChannel struct {
	mu     sync.Mutex
	msgs   []amqp.Publishing
	keys   []string
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestRabbitPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := newRabbitPublisher(ch, Config{Queue: "tickets.events", BreakerTimeout: time.Second}, discard)
	p.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	ev := domain.TicketEvent{Type: domain.TicketEventBooked, TicketID: "t-1", TicketCode: "c-1", EventID: "e-1", UserID: "u-1"}
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, ch.msgs, 1)
	assert.Equal(t, []string{"/tickets.events"}, ch.keys)
	msg := ch.msgs[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "ticket.booked", msg.Type)
	assert.Equal(t, "t-1:ticket.booked", msg.MessageId)

	var got domain.TicketEvent
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, ev.TicketID, got.TicketID)
	assert.Equal(t, ev.Type, got.Type)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestRabbitPublisher_BreakerOpensAfterFailures(t *testing.T) {
	ch := &fakeChannel{err: errors.New("connection closed")}
	p := newRabbitPublisher(ch, Config{Queue: "q", BreakerFailures: 2, BreakerTimeout: time.Minute}, discard)
	ev := domain.TicketEvent{Type: domain.TicketEventCancelled, TicketID: "t-1"}

	for range 2 {
		err := p.Publish(context.Background(), ev)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection closed")
	}
	err := p.Publish(context.Background(), ev)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNewPublisher_EmptyURLIsNoop(t *testing.T) {
	p, closeFn, err := NewPublisher(Config{}, discard)
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background(), domain.TicketEvent{Type: domain.TicketEventCheckedIn}))
	assert.NoError(t, closeFn())
}
