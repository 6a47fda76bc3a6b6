package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notifier/internal/notify"
	"notifier/internal/notify/broker"
)

type stubChannel struct {
	broker.Channel

	publishErr error

	exchange string
	key      string
	msg      amqp.Publishing
	calls    int
}

func (c *stubChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.calls++
	if c.publishErr != nil {
		return c.publishErr
	}
	c.exchange = exchange
	c.key = key
	c.msg = msg
	return nil
}

type stubSource struct {
	ch          *stubChannel
	gen         uint64
	channelErr  error
	invalidated []uint64
}

func (s *stubSource) Channel(ctx context.Context) (broker.Channel, uint64, error) {
	if s.channelErr != nil {
		return nil, 0, s.channelErr
	}
	return s.ch, s.gen, nil
}

func (s *stubSource) Invalidate(generation uint64) {
	s.invalidated = append(s.invalidated, generation)
}

func TestPublishDeliversPersistentJSONMessage(t *testing.T) {
	source := &stubSource{ch: &stubChannel{}, gen: 1}
	p, err := NewPublisher(source, zap.NewNop())
	require.NoError(t, err)

	event := notify.NewEvent(notify.ExchangePayment, notify.EventPaymentSuccess, map[string]any{
		"email": "farmer@example.com",
		"plan":  "premium",
	})

	require.NoError(t, p.Publish(context.Background(), event))

	assert.Equal(t, "payment_events", source.ch.exchange)
	assert.Equal(t, "payment.success", source.ch.key)
	assert.Equal(t, "application/json", source.ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, source.ch.msg.DeliveryMode)
	assert.NotEmpty(t, source.ch.msg.MessageId)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(source.ch.msg.Body, &payload))
	assert.Equal(t, "farmer@example.com", payload["email"])
	assert.Contains(t, payload, "timestamp")
}

func TestPublishRejectsInvalidEvent(t *testing.T) {
	source := &stubSource{ch: &stubChannel{}, gen: 1}
	p, err := NewPublisher(source, zap.NewNop())
	require.NoError(t, err)

	event := notify.Event{
		Exchange:   notify.ExchangeAuth,
		RoutingKey: "payment.success",
		Payload:    map[string]any{"email": "farmer@example.com"},
	}

	require.Error(t, p.Publish(context.Background(), event))
	assert.Zero(t, source.ch.calls)
}

func TestPublishDropsEventWhenBrokerUnavailable(t *testing.T) {
	source := &stubSource{channelErr: notify.ErrNotConnected}
	p, err := NewPublisher(source, zap.NewNop())
	require.NoError(t, err)

	event := notify.NewEvent(notify.ExchangeAuth, notify.EventAuthSignup, map[string]any{"email": "farmer@example.com"})

	err = p.Publish(context.Background(), event)

	require.Error(t, err)
	assert.ErrorIs(t, err, notify.ErrNotConnected)
	assert.Empty(t, source.invalidated)
}

func TestPublishInvalidatesHandleOnTransportError(t *testing.T) {
	source := &stubSource{
		ch:  &stubChannel{publishErr: errors.New("channel/connection is not open")},
		gen: 7,
	}
	p, err := NewPublisher(source, zap.NewNop())
	require.NoError(t, err)

	event := notify.NewEvent(notify.ExchangeAuth, notify.EventAuthSignup, map[string]any{"email": "farmer@example.com"})

	require.Error(t, p.Publish(context.Background(), event))
	assert.Equal(t, []uint64{7}, source.invalidated)
}
