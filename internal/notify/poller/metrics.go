package poller

import (
	"context"
	"time"

	"notifier/internal/notify"
	"notifier/internal/notify/metrics"
)

// MetricsPoller wraps a notify.Poller with metrics collection
type MetricsPoller struct {
	poller   notify.Poller
	registry *metrics.Registry
}

// NewMetricsPoller creates a new instrumented poller
func NewMetricsPoller(poller notify.Poller, registry *metrics.Registry) notify.Poller {
	return &MetricsPoller{
		poller:   poller,
		registry: registry,
	}
}

// Poll implements notify.Poller.Poll with metrics collection
func (p *MetricsPoller) Poll(ctx context.Context) (int, error) {
	start := time.Now()

	processed, err := p.poller.Poll(ctx)
	duration := time.Since(start)

	p.registry.RecordPoll(processed, duration, err)

	return processed, err
}
