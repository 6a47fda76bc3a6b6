package broker

import (
	"fmt"

	"notifier/internal/notify"
)

// EnsureTopology declares both durable topic exchanges and both durable
// queues, then binds each queue to its exchange with its wildcard pattern.
// Declarations are idempotent, so it is safe to call on every (re)connect.
// A broker rejection (e.g. a pre-existing exchange of a different kind) is
// fatal for that connection attempt and feeds the supervisor's retry path.
func EnsureTopology(ch Channel) error {
	for _, exchange := range notify.Exchanges() {
		if err := ch.ExchangeDeclare(string(exchange), "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("%w: exchange %s: %v", notify.ErrTopology, exchange, err)
		}
	}

	for _, b := range notify.Bindings() {
		if _, err := ch.QueueDeclare(b.Queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("%w: queue %s: %v", notify.ErrTopology, b.Queue, err)
		}

		if err := ch.QueueBind(b.Queue, b.Pattern, string(b.Exchange), false, nil); err != nil {
			return fmt.Errorf("%w: binding %s -> %s (%s): %v", notify.ErrTopology, b.Exchange, b.Queue, b.Pattern, err)
		}
	}

	return nil
}
