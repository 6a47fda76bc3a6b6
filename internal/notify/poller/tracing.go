package poller

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"notifier/internal/notify"
	"notifier/internal/notify/tracing"
)

// TracedPoller wraps a notify.Poller with distributed tracing
// Layer order: TracedPoller -> MetricsPoller -> Poller (real thing)
type TracedPoller struct {
	poller notify.Poller
	tracer *tracing.Tracer
}

// NewTracedPoller creates a new traced poller that wraps a metrics poller
func NewTracedPoller(poller notify.Poller, tracer *tracing.Tracer) notify.Poller {
	return &TracedPoller{
		poller: poller,
		tracer: tracer,
	}
}

// Poll implements notify.Poller.Poll with distributed tracing
func (p *TracedPoller) Poll(ctx context.Context) (int, error) {
	ctx, span := p.tracer.StartSpan(ctx, "poller.poll")
	defer span.End()

	processed, err := p.poller.Poll(ctx)

	span.SetAttributes(
		attribute.Int("notify.messages_processed", processed),
	)

	if err != nil {
		p.tracer.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(p.tracer.ErrorAttributes(err)...)

	return processed, err
}
