package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"notifier/internal/notify"
	"notifier/internal/notify/broker"
	"notifier/internal/validator"
)

// Publisher is the concrete implementation of notify.Publisher. It publishes
// without publisher confirms: a broker outage between the business action
// committing and the publish call loses the event. That trade-off is the
// documented contract; callers who need guarantees layer retries on the
// returned error.
type Publisher struct {
	broker broker.Source
	logger *zap.Logger
}

// NewPublisher creates a publisher over the supervised broker connection.
func NewPublisher(source broker.Source, logger *zap.Logger) (*Publisher, error) {
	p := Publisher{
		broker: source,
		logger: logger.Named("publisher"),
	}

	if err := validator.Validate("publisher", p.broker, p.logger); err != nil {
		return nil, fmt.Errorf("failed to validate publisher deps: %w", err)
	}

	return &p, nil
}

// Publish implements notify.Publisher. It validates the event against the
// declared topology, serializes the payload as the message body and hands it
// to the broker with persistent delivery. Never blocks on confirmation.
func (p *Publisher) Publish(ctx context.Context, event notify.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	body, err := event.Encode()
	if err != nil {
		return err
	}

	// Channel triggers one lazy reconnect attempt when disconnected; if
	// that fails the event is dropped for this call.
	ch, gen, err := p.broker.Channel(ctx)
	if err != nil {
		p.logger.Error("event dropped, broker unavailable",
			zap.String("exchange", string(event.Exchange)),
			zap.String("routing_key", event.RoutingKey),
			zap.Error(err),
		)
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, string(event.Exchange), event.RoutingKey, false, false, msg); err != nil {
		// The captured handle is dead; hand it back so the supervisor
		// rebuilds rather than letting anyone retry against it.
		p.broker.Invalidate(gen)
		p.logger.Error("failed to publish event",
			zap.String("exchange", string(event.Exchange)),
			zap.String("routing_key", event.RoutingKey),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish %s: %w", event.RoutingKey, err)
	}

	p.logger.Debug("event published",
		zap.String("exchange", string(event.Exchange)),
		zap.String("routing_key", event.RoutingKey),
		zap.String("message_id", msg.MessageId),
	)

	return nil
}
