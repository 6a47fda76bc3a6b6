package dispatcher

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"notifier/internal/notify"
	"notifier/internal/notify/tracing"
)

// TracedDispatcher wraps a notify.Dispatcher with distributed tracing
// Layer order: TracedDispatcher -> MetricsDispatcher -> Dispatcher (real thing)
type TracedDispatcher struct {
	dispatcher notify.Dispatcher
	tracer     *tracing.Tracer
}

// NewTracedDispatcher creates a new traced dispatcher that wraps a metrics dispatcher
func NewTracedDispatcher(dispatcher notify.Dispatcher, tracer *tracing.Tracer) notify.Dispatcher {
	return &TracedDispatcher{
		dispatcher: dispatcher,
		tracer:     tracer,
	}
}

// Dispatch implements notify.Dispatcher.Dispatch with distributed tracing
func (d *TracedDispatcher) Dispatch(ctx context.Context, email, eventType string, payload map[string]any) (notify.Outcome, error) {
	ctx, span := d.tracer.StartSpan(ctx, "dispatcher.dispatch")
	defer span.End()

	span.SetAttributes(d.tracer.DispatchAttributes(eventType)...)

	outcome, err := d.dispatcher.Dispatch(ctx, email, eventType, payload)

	span.SetAttributes(
		attribute.String("notify.outcome", string(outcome)),
	)

	if err != nil {
		d.tracer.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(d.tracer.ErrorAttributes(err)...)

	return outcome, err
}
