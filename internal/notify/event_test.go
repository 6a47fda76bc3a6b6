package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name       string
		exchange   Exchange
		routingKey string
		wantErr    bool
	}{
		{"auth event on auth exchange", ExchangeAuth, EventAuthSignup, false},
		{"payment event on payment exchange", ExchangePayment, EventPaymentSuccess, false},
		{"auth event on payment exchange", ExchangePayment, EventAuthSignup, true},
		{"payment event on auth exchange", ExchangeAuth, EventPaymentVerified, true},
		{"empty routing key", ExchangeAuth, "", true},
		{"undeclared exchange", Exchange("orders_events"), "orders.created", true},
		{"extra segment outside wildcard", ExchangeAuth, "auth.signup.extra", true},
		{"bare domain prefix", ExchangeAuth, "auth.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{Exchange: tt.exchange, RoutingKey: tt.routingKey, Payload: map[string]any{"email": "a@b.com"}}

			err := e.Validate()

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExchangeOwns(t *testing.T) {
	assert.True(t, ExchangeAuth.Owns("auth.login"))
	assert.True(t, ExchangePayment.Owns("payment.closed"))
	assert.False(t, ExchangeAuth.Owns("payment.closed"))
	assert.False(t, ExchangeAuth.Owns("authx.login"))
	assert.False(t, ExchangePayment.Owns("payment.success.eu"))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := map[string]any{
		"email":  "a@b.com",
		"userId": "USR-0001",
		"plan":   "pro",
	}
	e := Event{Exchange: ExchangePayment, RoutingKey: EventPaymentSuccess, Payload: payload}

	body, err := e.Encode()
	require.NoError(t, err)

	decoded, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestDecodeMalformedBody(t *testing.T) {
	_, err := Decode([]byte("not json"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestNewEventStampsTimestamp(t *testing.T) {
	e := NewEvent(ExchangeAuth, EventAuthSignup, map[string]any{"email": "a@b.com"})

	assert.Contains(t, e.Payload, "timestamp")

	// A caller-provided timestamp is preserved.
	e = NewEvent(ExchangeAuth, EventAuthSignup, map[string]any{"email": "a@b.com", "timestamp": "2024-01-01T00:00:00Z"})
	assert.Equal(t, "2024-01-01T00:00:00Z", e.Payload["timestamp"])
}

func TestNewEventLeavesCallerPayloadAlone(t *testing.T) {
	payload := map[string]any{"email": "a@b.com"}

	e := NewEvent(ExchangeAuth, EventAuthSignup, payload)

	assert.Contains(t, e.Payload, "timestamp")
	assert.NotContains(t, payload, "timestamp")

	e.Payload["email"] = "other@b.com"
	assert.Equal(t, "a@b.com", payload["email"])
}

func TestNewEventWithNilPayload(t *testing.T) {
	e := NewEvent(ExchangeAuth, EventAuthSignup, nil)

	require.NotNil(t, e.Payload)
	assert.Contains(t, e.Payload, "timestamp")
}

func TestEmailOf(t *testing.T) {
	email, ok := EmailOf(map[string]any{"email": "a@b.com"})
	assert.True(t, ok)
	assert.Equal(t, "a@b.com", email)

	_, ok = EmailOf(map[string]any{"email": ""})
	assert.False(t, ok)

	_, ok = EmailOf(map[string]any{"email": 42})
	assert.False(t, ok)

	_, ok = EmailOf(map[string]any{})
	assert.False(t, ok)
}
