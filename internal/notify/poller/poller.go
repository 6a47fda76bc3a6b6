package poller

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"notifier/internal/notify"
	"notifier/internal/notify/metrics"
	"notifier/internal/notify/mgmt"
	"notifier/internal/validator"
)

// Config configures the polling consumer.
type Config struct {
	BatchSize int          `env:"POLL_BATCH_SIZE" envDefault:"100"`
	AckMode   mgmt.AckMode `env:"POLL_ACK_MODE" envDefault:"ack_requeue_false"`
}

// Poller is the scheduled, stateless alternative to the streaming consumer.
// It drains the notification queues through the broker's management API.
//
// The acknowledgment mode decides correctness. The default removes messages
// on fetch; requeue mode leaves them behind, so running it as the only
// consumer re-sends the same notifications on every poll without bound. It
// must be configured deliberately and only when another consumer is the one
// authoritative drain.
type Poller struct {
	client     *mgmt.Client
	dispatcher notify.Dispatcher
	registry   *metrics.Registry
	logger     *zap.Logger
	batchSize  int
	ackMode    mgmt.AckMode

	running atomic.Bool
}

// NewPoller creates a polling consumer.
func NewPoller(cfg Config, client *mgmt.Client, dispatcher notify.Dispatcher, registry *metrics.Registry, logger *zap.Logger) (*Poller, error) {
	if !cfg.AckMode.Valid() {
		return nil, fmt.Errorf("invalid poll ack mode %q", cfg.AckMode)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	p := Poller{
		client:     client,
		dispatcher: dispatcher,
		registry:   registry,
		logger:     logger.Named("poller"),
		batchSize:  cfg.BatchSize,
		ackMode:    cfg.AckMode,
	}

	if err := validator.Validate("poller", p.client, p.dispatcher, p.registry, p.logger); err != nil {
		return nil, fmt.Errorf("failed to validate poller deps: %w", err)
	}

	if cfg.AckMode == mgmt.AckRequeueTrue {
		p.logger.Warn("requeue ack mode selected: every poll re-fetches the same messages until another consumer drains them")
	}

	return &p, nil
}

// Poll implements notify.Poller. Overlapping invocations are skipped so two
// polls never run concurrently against the same queues.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Warn("previous poll still running, skipping")
		return 0, nil
	}
	defer p.running.Store(false)

	queues, err := p.client.ListQueues(ctx)
	if err != nil {
		return 0, err
	}

	targets := map[string]bool{}
	for _, name := range notify.Queues() {
		targets[name] = true
	}

	processed := 0
	for _, queue := range queues {
		if !targets[queue.Name] {
			continue
		}

		n, err := p.drainQueue(ctx, queue.Name)
		processed += n
		if err != nil {
			if ctx.Err() != nil {
				return processed, ctx.Err()
			}
			// One bad queue must not starve the other.
			p.logger.Error("failed to drain queue", zap.String("queue", queue.Name), zap.Error(err))
		}
	}

	p.logger.Info("poll complete", zap.Int("processed", processed))

	return processed, nil
}

func (p *Poller) drainQueue(ctx context.Context, queue string) (int, error) {
	messages, err := p.client.GetMessages(ctx, queue, p.batchSize, p.ackMode)
	if err != nil {
		return 0, err
	}

	p.registry.RecordFetched(queue, len(messages))
	p.logger.Debug("fetched messages", zap.String("queue", queue), zap.Int("count", len(messages)))

	processed := 0
	for _, msg := range messages {
		routingKey := msg.Properties.RoutingKey

		body, err := msg.Body()
		if err != nil {
			p.logger.Error("skipping message with undecodable payload",
				zap.String("queue", queue),
				zap.String("routing_key", routingKey),
				zap.Error(err),
			)
			continue
		}

		payload, err := notify.Decode(body)
		if err != nil {
			p.logger.Error("skipping malformed message",
				zap.String("queue", queue),
				zap.String("routing_key", routingKey),
				zap.Error(err),
			)
			continue
		}

		email, ok := notify.EmailOf(payload)
		if !ok {
			p.logger.Error("skipping message without email field",
				zap.String("queue", queue),
				zap.String("routing_key", routingKey),
			)
			continue
		}

		if _, err := p.dispatcher.Dispatch(ctx, email, routingKey, payload); err != nil {
			return processed, err
		}
		processed++
	}

	return processed, nil
}
