package mgmt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AckMode selects what the broker does with fetched messages. This is the
// critical correctness parameter of the polling path: AckRequeueFalse
// removes messages on fetch, AckRequeueTrue leaves them on the queue so
// every subsequent poll re-fetches and re-dispatches them. Requeue is only
// acceptable when exactly one authoritative consumer exists system-wide.
type AckMode string

const (
	AckRequeueFalse AckMode = "ack_requeue_false"
	AckRequeueTrue  AckMode = "ack_requeue_true"
)

// Valid reports whether the mode is one the management API accepts.
func (m AckMode) Valid() bool {
	return m == AckRequeueFalse || m == AckRequeueTrue
}

// Config configures the management API client.
type Config struct {
	URL      string        `env:"AMQP_MGMT_URL"`
	Username string        `env:"AMQP_USERNAME" envDefault:"guest"`
	Password string        `env:"AMQP_PASSWORD" envDefault:"guest"`
	Vhost    string        `env:"AMQP_VHOST" envDefault:"/"`
	Timeout  time.Duration `env:"AMQP_MGMT_TIMEOUT" envDefault:"10s"`
}

// Queue is a queue listed by the management API.
type Queue struct {
	Name string `json:"name"`
}

// MessageProperties carries the metadata returned with a fetched message.
type MessageProperties struct {
	RoutingKey string `json:"routing_key"`
}

// Message is a single message fetched through the management API.
type Message struct {
	Payload         string            `json:"payload"`
	PayloadEncoding string            `json:"payload_encoding"`
	Properties      MessageProperties `json:"properties"`
}

// Body returns the decoded message body, reversing the base64 transport
// encoding when the API applied one.
func (m Message) Body() ([]byte, error) {
	if m.PayloadEncoding == "base64" {
		body, err := base64.StdEncoding.DecodeString(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 payload: %w", err)
		}
		return body, nil
	}

	return []byte(m.Payload), nil
}

// Client talks to the broker's management HTTP interface.
type Client struct {
	base   string
	cfg    Config
	client *http.Client
}

// NewClient creates a management client. When cfg.URL is empty the endpoint
// is derived from the AMQP connection URL.
func NewClient(cfg Config, amqpURL string) (*Client, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		derived, err := DeriveEndpoint(amqpURL)
		if err != nil {
			return nil, fmt.Errorf("management url not configured and not derivable: %w", err)
		}
		base = derived
	}

	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("management credentials are required")
	}

	return &Client{
		base:   base,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// DeriveEndpoint maps an AMQP connection URL onto the conventional
// management endpoint: amqps hosts get https, everything else http, both on
// the default management port.
func DeriveEndpoint(amqpURL string) (string, error) {
	u, err := url.Parse(amqpURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse amqp url: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("amqp url has no host")
	}

	scheme := "http"
	if u.Scheme == "amqps" {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s:15672", scheme, u.Hostname()), nil
}

// ListQueues returns the queues the broker knows about.
func (c *Client) ListQueues(ctx context.Context) ([]Queue, error) {
	var queues []Queue
	if err := c.do(ctx, http.MethodGet, "/api/queues", nil, &queues); err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}

	return queues, nil
}

// GetMessages fetches up to count messages from a queue under the given
// acknowledgment mode.
func (c *Client) GetMessages(ctx context.Context, queue string, count int, mode AckMode) ([]Message, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid ack mode %q", mode)
	}

	body := map[string]any{
		"ackmode":  string(mode),
		"count":    count,
		"encoding": "auto",
	}

	path := fmt.Sprintf("/api/queues/%s/%s/get", url.PathEscape(c.cfg.Vhost), url.PathEscape(queue))

	var messages []Message
	if err := c.do(ctx, http.MethodPost, path, body, &messages); err != nil {
		return nil, fmt.Errorf("failed to get messages from %s: %w", queue, err)
	}

	return messages, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("management request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("management API returned %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
