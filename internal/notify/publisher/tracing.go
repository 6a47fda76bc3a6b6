package publisher

import (
	"context"

	"go.opentelemetry.io/otel/codes"

	"notifier/internal/notify"
	"notifier/internal/notify/tracing"
)

// TracedPublisher wraps a notify.Publisher with distributed tracing
// Layer order: TracedPublisher -> MetricsPublisher -> Publisher (real thing)
type TracedPublisher struct {
	publisher notify.Publisher
	tracer    *tracing.Tracer
}

// NewTracedPublisher creates a new traced publisher that wraps a metrics publisher
func NewTracedPublisher(publisher notify.Publisher, tracer *tracing.Tracer) notify.Publisher {
	return &TracedPublisher{
		publisher: publisher,
		tracer:    tracer,
	}
}

// Publish implements notify.Publisher.Publish with distributed tracing
func (p *TracedPublisher) Publish(ctx context.Context, event notify.Event) error {
	ctx, span := p.tracer.StartSpan(ctx, "publisher.publish")
	defer span.End()

	span.SetAttributes(p.tracer.PublishAttributes(string(event.Exchange), event.RoutingKey)...)

	err := p.publisher.Publish(ctx, event)

	if err != nil {
		p.tracer.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(p.tracer.ErrorAttributes(err)...)

	return err
}
