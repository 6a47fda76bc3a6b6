// Package provider holds the thin HTTP wrappers around the external
// notification providers. They carry no internal state machine; failures
// surface as a SendError the dispatcher logs and swallows.
package provider

import "fmt"

// SendError carries the provider's HTTP status and response body so a
// failed send can be logged with full context.
type SendError struct {
	Provider string
	Status   int
	Body     string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s send failed with status %d: %s", e.Provider, e.Status, e.Body)
}
