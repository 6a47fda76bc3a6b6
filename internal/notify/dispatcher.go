package notify

import "context"

// Outcome classifies a single delivery attempt. Attempts are ephemeral:
// they exist for logging and metrics only and are never stored durably.
type Outcome string

const (
	// OutcomeSent means the provider accepted the notification.
	OutcomeSent Outcome = "sent"
	// OutcomeSkipped means no template exists for the event type; this is
	// a silent no-op, not an error.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the provider rejected the send. The event is
	// still considered consumed at the broker level; retrying provider
	// failures is out of scope here.
	OutcomeFailed Outcome = "failed"
)

// Dispatcher defines the interface for turning a decoded event into exactly
// one provider call.
type Dispatcher interface {
	// Dispatch resolves the template for eventType, renders it with the
	// payload and calls the external provider. Provider failures are
	// reported through the outcome, not the error: the error is non-nil
	// only when the context ended before the attempt completed.
	Dispatch(ctx context.Context, email, eventType string, payload map[string]any) (Outcome, error)
}
