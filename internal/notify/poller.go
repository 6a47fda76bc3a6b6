package notify

import "context"

// Poller defines the interface for the scheduled, stateless consumption
// path that drains the notification queues through the broker's management
// API instead of a live subscription.
type Poller interface {
	// Poll fetches a batch from each target queue, dispatches every
	// decodable message and returns how many were processed. Overlapping
	// invocations are skipped, never run concurrently.
	Poll(ctx context.Context) (int, error)
}
