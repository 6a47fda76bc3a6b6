package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"notifier/internal/notify"
	"notifier/internal/provider"
	"notifier/internal/validator"
)

// Dispatcher is the concrete implementation of notify.Dispatcher. It resolves
// a template for the event type, renders it with the event payload and makes
// exactly one provider call per event. Provider failures are logged and
// swallowed: by the time Dispatch runs, the message is already acknowledged
// or removed, so broker-level success and notification-level failure are
// deliberately allowed to diverge.
type Dispatcher struct {
	templates notify.Registry
	email     provider.EmailSender
	push      provider.PushSender
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher over the given template registry and
// provider clients.
func NewDispatcher(templates notify.Registry, email provider.EmailSender, push provider.PushSender, logger *zap.Logger) (*Dispatcher, error) {
	d := Dispatcher{
		templates: templates,
		email:     email,
		push:      push,
		logger:    logger.Named("dispatcher"),
	}

	if err := validator.Validate("dispatcher", d.templates, d.email, d.push, d.logger); err != nil {
		return nil, fmt.Errorf("failed to validate dispatcher deps: %w", err)
	}

	return &d, nil
}

// Dispatch implements notify.Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, email, eventType string, payload map[string]any) (notify.Outcome, error) {
	tpl, ok := d.templates.Lookup(eventType)
	if !ok {
		// A publisher may add an event type before a template exists
		// for it; silently skipping is the contract, not an error.
		d.logger.Debug("no template for event type", zap.String("event_type", eventType))
		return notify.OutcomeSkipped, nil
	}

	subject, body := tpl.Render(payload)

	var err error
	switch tpl.Channel {
	case notify.ChannelPush:
		err = d.push.Send(ctx, provider.PushMessage{Target: email, Heading: subject, Content: body})
	default:
		err = d.email.Send(ctx, provider.EmailMessage{To: email, Subject: subject, HTML: body})
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return notify.OutcomeFailed, err
		}

		var sendErr *provider.SendError
		if errors.As(err, &sendErr) {
			d.logger.Error("provider rejected notification",
				zap.String("event_type", eventType),
				zap.String("recipient", email),
				zap.Int("status", sendErr.Status),
				zap.String("body", sendErr.Body),
			)
		} else {
			d.logger.Error("notification send failed",
				zap.String("event_type", eventType),
				zap.String("recipient", email),
				zap.Error(err),
			)
		}

		return notify.OutcomeFailed, nil
	}

	d.logger.Info("notification sent",
		zap.String("event_type", eventType),
		zap.String("recipient", email),
		zap.String("channel", string(tpl.Channel)),
	)

	return notify.OutcomeSent, nil
}
