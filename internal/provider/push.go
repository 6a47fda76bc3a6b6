package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// PushMessage is the payload accepted by the push provider.
type PushMessage struct {
	Target  string
	Heading string
	Content string
}

// PushSender sends a single push notification.
type PushSender interface {
	Send(ctx context.Context, msg PushMessage) error
}

// PushConfig configures the push provider client.
type PushConfig struct {
	APIKey   string        `env:"PUSH_API_KEY"`
	AppID    string        `env:"PUSH_APP_ID"`
	BaseURL  string        `env:"PUSH_BASE_URL" envDefault:"https://onesignal.com/api/v1"`
	Channels []string      `env:"PUSH_CHANNELS" envSeparator:"," envDefault:"push"`
	Timeout  time.Duration `env:"PUSH_TIMEOUT" envDefault:"10s"`
}

// PushClient posts {app_id, target, headings, contents, channels} to the
// provider's notifications endpoint.
type PushClient struct {
	cfg    PushConfig
	client *http.Client
}

// NewPushClient creates a push client. A missing API key or app id is a
// startup configuration error for the calling component.
func NewPushClient(cfg PushConfig) (*PushClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("push api key is required")
	}
	if cfg.AppID == "" {
		return nil, fmt.Errorf("push app id is required")
	}

	return &PushClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Send implements PushSender.
func (c *PushClient) Send(ctx context.Context, msg PushMessage) error {
	body, err := json.Marshal(map[string]any{
		"app_id":   c.cfg.AppID,
		"target":   msg.Target,
		"headings": msg.Heading,
		"contents": msg.Content,
		"channels": c.cfg.Channels,
	})
	if err != nil {
		return fmt.Errorf("failed to encode push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &SendError{Provider: "push", Status: resp.StatusCode, Body: string(respBody)}
	}

	return nil
}

// NoopPushSender discards push notifications. Used when the push provider
// is not configured so email-only deployments keep working.
type NoopPushSender struct {
	logger *zap.Logger
}

// NewNoopPushSender creates a sender that logs and drops every message.
func NewNoopPushSender(logger *zap.Logger) *NoopPushSender {
	return &NoopPushSender{logger: logger.Named("push-noop")}
}

// Send implements PushSender.
func (s *NoopPushSender) Send(_ context.Context, msg PushMessage) error {
	s.logger.Info("push provider not configured, dropping notification",
		zap.String("target", msg.Target),
		zap.String("heading", msg.Heading),
	)
	return nil
}
