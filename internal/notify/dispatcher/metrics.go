package dispatcher

import (
	"context"
	"time"

	"notifier/internal/notify"
	"notifier/internal/notify/metrics"
)

// MetricsDispatcher wraps a notify.Dispatcher with metrics collection
type MetricsDispatcher struct {
	dispatcher notify.Dispatcher
	registry   *metrics.Registry
}

// NewMetricsDispatcher creates a new instrumented dispatcher
func NewMetricsDispatcher(dispatcher notify.Dispatcher, registry *metrics.Registry) notify.Dispatcher {
	return &MetricsDispatcher{
		dispatcher: dispatcher,
		registry:   registry,
	}
}

// Dispatch implements notify.Dispatcher.Dispatch with metrics collection
func (d *MetricsDispatcher) Dispatch(ctx context.Context, email, eventType string, payload map[string]any) (notify.Outcome, error) {
	start := time.Now()

	outcome, err := d.dispatcher.Dispatch(ctx, email, eventType, payload)
	duration := time.Since(start)

	status := string(outcome)
	if err != nil {
		status = "error"
	}
	d.registry.RecordDispatch(eventType, status, duration)

	return outcome, err
}
