package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EmailMessage is the payload accepted by the email provider.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
}

// EmailSender sends a single transactional email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailConfig configures the email provider client.
type EmailConfig struct {
	APIKey  string        `env:"EMAIL_API_KEY"`
	From    string        `env:"EMAIL_FROM" envDefault:"noreply@localhost"`
	BaseURL string        `env:"EMAIL_BASE_URL" envDefault:"https://api.resend.com"`
	Timeout time.Duration `env:"EMAIL_TIMEOUT" envDefault:"10s"`
}

// EmailClient posts {from, to, subject, html} to the provider's send
// endpoint with bearer authentication.
type EmailClient struct {
	cfg    EmailConfig
	client *http.Client
}

// NewEmailClient creates an email client. A missing API key is a startup
// configuration error for the calling component.
func NewEmailClient(cfg EmailConfig) (*EmailClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("email api key is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("email sender identity is required")
	}

	return &EmailClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Send implements EmailSender.
func (c *EmailClient) Send(ctx context.Context, msg EmailMessage) error {
	body, err := json.Marshal(map[string]string{
		"from":    c.cfg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &SendError{Provider: "email", Status: resp.StatusCode, Body: string(respBody)}
	}

	return nil
}
