package notify

import (
	"strings"
	"text/template"
)

// Channel selects the provider a rendered notification goes to.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// Template is the static content rendered for one event type.
// Subject and HTML may embed payload fields using {{.field}} expressions.
type Template struct {
	Subject string
	HTML    string
	Channel Channel
}

// Registry is an immutable mapping from event type to template.
// Lookup is by exact routing-key match; a miss is a deliberate no-op so a
// publisher can add an event type before a template exists for it.
type Registry map[string]Template

// Lookup resolves the template for an event type.
func (r Registry) Lookup(eventType string) (Template, bool) {
	t, ok := r[eventType]
	return t, ok
}

// Render expands payload fields into the subject and body. A template that
// fails to parse or execute falls back to its raw content so a bad
// interpolation never drops a notification.
func (t Template) Render(payload map[string]any) (subject, body string) {
	return render(t.Subject, payload), render(t.HTML, payload)
}

func render(text string, payload map[string]any) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	tmpl, err := template.New("notification").Option("missingkey=zero").Parse(text)
	if err != nil {
		return text
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, payload); err != nil {
		return text
	}

	return sb.String()
}

// DefaultRegistry covers every recognized event type with email content.
func DefaultRegistry() Registry {
	return Registry{
		EventAuthSignup: {
			Subject: "Welcome to Farm Connect!",
			HTML:    "<h1>Welcome!</h1><p>Your account has been created successfully.</p>",
			Channel: ChannelEmail,
		},
		EventAuthLogin: {
			Subject: "Login Successful",
			HTML:    "<h1>Login Successful</h1><p>You have logged in to your account.</p>",
			Channel: ChannelEmail,
		},
		EventAuthLogout: {
			Subject: "Logged Out",
			HTML:    "<h1>Logged Out</h1><p>You have been logged out.</p>",
			Channel: ChannelEmail,
		},
		EventPaymentInitialized: {
			Subject: "Payment Started",
			HTML:    "<h1>Payment Started</h1><p>Your payment process has started.</p>",
			Channel: ChannelEmail,
		},
		EventPaymentVerified: {
			Subject: "Payment Verified",
			HTML:    "<h1>Payment Verified</h1><p>Your payment has been verified.</p>",
			Channel: ChannelEmail,
		},
		EventPaymentSuccess: {
			Subject: "Payment Successful",
			HTML:    "<h1>Payment Successful</h1><p>Your payment was completed successfully.</p>",
			Channel: ChannelEmail,
		},
		EventPaymentClosed: {
			Subject: "Payment Cancelled",
			HTML:    "<h1>Payment Cancelled</h1><p>Your payment process was cancelled.</p>",
			Channel: ChannelEmail,
		},
	}
}
