package publisher

import (
	"context"
	"time"

	"notifier/internal/notify"
	"notifier/internal/notify/metrics"
)

// MetricsPublisher wraps a notify.Publisher with metrics collection
type MetricsPublisher struct {
	publisher notify.Publisher
	registry  *metrics.Registry
}

// NewMetricsPublisher creates a new instrumented publisher
func NewMetricsPublisher(publisher notify.Publisher, registry *metrics.Registry) notify.Publisher {
	return &MetricsPublisher{
		publisher: publisher,
		registry:  registry,
	}
}

// Publish implements notify.Publisher.Publish with metrics collection
func (p *MetricsPublisher) Publish(ctx context.Context, event notify.Event) error {
	start := time.Now()

	err := p.publisher.Publish(ctx, event)
	duration := time.Since(start)

	p.registry.RecordPublish(string(event.Exchange), duration, err)

	return err
}
