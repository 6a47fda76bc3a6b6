package consumer

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"notifier/internal/notify"
	"notifier/internal/notify/broker"
	"notifier/internal/notify/metrics"
	"notifier/internal/validator"
)

const retryWait = time.Second

// Consumer is the long-lived streaming consumer. It subscribes to both
// notification queues with manual acknowledgment and prefetch 1, processing
// one message at a time per queue so the broker's per-queue order is
// preserved and acks are never reordered.
//
// A delivery is acknowledged regardless of the dispatch outcome: a provider
// outage costs a notification, not a stuck queue. Unacked messages only
// exist if the process dies mid-handling, in which case the broker
// redelivers them to the next consumer.
type Consumer struct {
	broker     broker.Source
	dispatcher notify.Dispatcher
	registry   *metrics.Registry
	logger     *zap.Logger
}

// NewConsumer creates a streaming consumer over the supervised connection.
func NewConsumer(source broker.Source, dispatcher notify.Dispatcher, registry *metrics.Registry, logger *zap.Logger) (*Consumer, error) {
	c := Consumer{
		broker:     source,
		dispatcher: dispatcher,
		registry:   registry,
		logger:     logger.Named("consumer"),
	}

	if err := validator.Validate("consumer", c.broker, c.dispatcher, c.registry, c.logger); err != nil {
		return nil, fmt.Errorf("failed to validate consumer deps: %w", err)
	}

	return &c, nil
}

// Run consumes both queues until ctx ends, re-subscribing through the
// supervisor whenever the transport drops.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		ch, gen, err := c.broker.Channel(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("waiting for broker connection", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryWait):
			}
			continue
		}

		if err := c.consume(ctx, ch); err != nil && ctx.Err() == nil {
			c.logger.Warn("subscription lost, reconnecting", zap.Error(err))
			c.broker.Invalidate(gen)
			continue
		}

		return ctx.Err()
	}
}

func (c *Consumer) consume(ctx context.Context, ch broker.Channel) error {
	// Prefetch 1 keeps at most one unacked delivery in flight per queue.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, queue := range notify.Queues() {
		g.Go(func() error {
			return c.consumeQueue(gctx, ch, queue)
		})
	}

	return g.Wait()
}

// consumeQueue processes deliveries from one queue on a single goroutine.
// Single-flight per queue is the ordering mechanism: no two handlers for the
// same queue ever run concurrently.
func (c *Consumer) consumeQueue(ctx context.Context, ch broker.Channel, queue string) error {
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", queue, err)
	}

	c.logger.Info("subscribed", zap.String("queue", queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: delivery stream for %s closed", notify.ErrNotConnected, queue)
			}
			c.handle(ctx, queue, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, queue string, d amqp.Delivery) {
	payload, err := notify.Decode(d.Body)
	if err != nil {
		c.logger.Error("skipping undecodable message",
			zap.String("queue", queue),
			zap.String("routing_key", d.RoutingKey),
			zap.Error(err),
		)
		c.registry.RecordConsume(queue, "decode_error")
		c.ack(queue, d)
		return
	}

	email, ok := notify.EmailOf(payload)
	if !ok {
		c.logger.Error("skipping message without email field",
			zap.String("queue", queue),
			zap.String("routing_key", d.RoutingKey),
		)
		c.registry.RecordConsume(queue, "decode_error")
		c.ack(queue, d)
		return
	}

	outcome, err := c.dispatcher.Dispatch(ctx, email, d.RoutingKey, payload)
	if err != nil {
		c.logger.Error("dispatch aborted",
			zap.String("queue", queue),
			zap.String("routing_key", d.RoutingKey),
			zap.Error(err),
		)
	}
	c.registry.RecordConsume(queue, string(outcome))

	// Ack no matter what the dispatcher said: dispatch failures are lost
	// notifications by contract, never redelivery loops.
	c.ack(queue, d)
}

func (c *Consumer) ack(queue string, d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		// The broker will redeliver once the connection is rebuilt.
		c.logger.Warn("failed to ack delivery",
			zap.String("queue", queue),
			zap.String("routing_key", d.RoutingKey),
			zap.Error(err),
		)
	}
}
