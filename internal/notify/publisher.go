package notify

import "context"

// Publisher defines the interface for publishing domain events to the broker.
//
// Publishing is best-effort: no publisher confirms are used, so a broker
// outage between the business action committing and the publish call loses
// the event. Callers that want guarantees can layer retries on the returned
// error; the API layer logs and drops it.
type Publisher interface {
	// Publish serializes the event payload and hands it to the broker,
	// routed by the event's routing key. Never blocks on delivery
	// confirmation.
	Publish(ctx context.Context, event Event) error
}
