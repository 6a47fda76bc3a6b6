package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Exchange identifies one of the declared topic exchanges.
type Exchange string

const (
	ExchangeAuth    Exchange = "auth_events"
	ExchangePayment Exchange = "payment_events"
)

// Queue names bound to the exchanges above.
const (
	QueueAuth    = "auth_notifications"
	QueuePayment = "payment_notifications"
)

// Recognized event types. The routing key of a published event is its type.
const (
	EventAuthSignup         = "auth.signup"
	EventAuthLogin          = "auth.login"
	EventAuthLogout         = "auth.logout"
	EventPaymentInitialized = "payment.initialized"
	EventPaymentVerified    = "payment.verified"
	EventPaymentSuccess     = "payment.success"
	EventPaymentClosed      = "payment.closed"
)

// Binding ties a queue to an exchange through a wildcard pattern.
type Binding struct {
	Exchange Exchange
	Queue    string
	Pattern  string
}

// Bindings returns the static queue bindings declared at topology init.
func Bindings() []Binding {
	return []Binding{
		{Exchange: ExchangeAuth, Queue: QueueAuth, Pattern: "auth.*"},
		{Exchange: ExchangePayment, Queue: QueuePayment, Pattern: "payment.*"},
	}
}

// Exchanges returns the declared exchanges.
func Exchanges() []Exchange {
	return []Exchange{ExchangeAuth, ExchangePayment}
}

// Queues returns the declared queue names.
func Queues() []string {
	return []string{QueueAuth, QueuePayment}
}

// Owns reports whether a routing key falls inside the exchange's wildcard
// domain. The topic wildcard "*" matches exactly one dot-separated word, so
// "auth.signup" is owned by auth_events while "auth.signup.extra" is not.
func (e Exchange) Owns(routingKey string) bool {
	var prefix string
	switch e {
	case ExchangeAuth:
		prefix = "auth."
	case ExchangePayment:
		prefix = "payment."
	default:
		return false
	}

	rest, ok := strings.CutPrefix(routingKey, prefix)
	return ok && rest != "" && !strings.Contains(rest, ".")
}

// Event is a domain event published after a business action succeeds.
// The routing key doubles as the event type and the payload is carried
// as the message body, immutable in transit.
type Event struct {
	Exchange   Exchange
	RoutingKey string
	Payload    map[string]any
}

// NewEvent builds an event and stamps a UTC timestamp into the payload
// when the caller did not provide one. The payload is copied so the caller's
// map is never written to.
func NewEvent(exchange Exchange, routingKey string, payload map[string]any) Event {
	stamped := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		stamped[k] = v
	}
	if _, ok := stamped["timestamp"]; !ok {
		stamped["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	return Event{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Payload:    stamped,
	}
}

// Validate checks the publish preconditions: a declared exchange, a non-empty
// routing key, and a routing key inside the exchange's wildcard domain.
func (e Event) Validate() error {
	switch e.Exchange {
	case ExchangeAuth, ExchangePayment:
	default:
		return fmt.Errorf("undeclared exchange %q", e.Exchange)
	}

	if e.RoutingKey == "" {
		return fmt.Errorf("routing key is required")
	}

	if !e.Exchange.Owns(e.RoutingKey) {
		return fmt.Errorf("routing key %q is outside the %s domain", e.RoutingKey, e.Exchange)
	}

	return nil
}

// Encode serializes the payload as the UTF-8 JSON message body.
func (e Event) Encode() ([]byte, error) {
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload for %s: %w", e.RoutingKey, err)
	}

	return body, nil
}

// Decode parses a message body back into an event payload.
func Decode(body []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return payload, nil
}

// EmailOf extracts the required email field from a decoded payload.
func EmailOf(payload map[string]any) (string, bool) {
	email, ok := payload["email"].(string)
	if !ok || email == "" {
		return "", false
	}

	return email, true
}
