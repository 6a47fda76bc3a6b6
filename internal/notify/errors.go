package notify

import "errors"

// Error taxonomy for the pipeline. Transport errors feed the supervisor's
// reconnect path, topology errors fail a single connection attempt, decode
// errors mark a message as skipped. None of them terminate the process.
var (
	ErrNotConnected = errors.New("broker not connected")
	ErrTopology     = errors.New("topology declaration rejected")
	ErrDecode       = errors.New("malformed message body")
)
