package process

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEndpoint is returned by Run on a Channel without an endpoint.
	ErrNoEndpoint = errors.New("process: channel has no endpoint")
	// ErrIncomplete means the connection closed before any terminal success.
	ErrIncomplete = errors.New("process: connection closed before a result arrived")
	// ErrCanceled is returned by Run when the exchange is abandoned by Cancel
	// or by a newer Start on the same Channel.
	ErrCanceled = errors.New("process: exchange canceled")
)

// RemoteError is a {"type":"error"} record sent by the backend.
type RemoteError struct {
	Endpoint string
	Message  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote error: %s", e.Endpoint, e.Message)
}

// TransportError wraps a dial, read or write failure.
type TransportError struct {
	Endpoint string
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Endpoint, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
