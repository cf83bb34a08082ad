package errors

import (
	"fmt"

	sterrors "errors"
)

var (
	ErrAdapterClosed       = sterrors.New("smartmessage: adapter has been shut down")
	ErrHandlerRequired     = sterrors.New("smartmessage: handler function is required")
	ErrHandlerNameRequired = sterrors.New("smartmessage: handler name is required")
	ErrClassRequired       = sterrors.New("smartmessage: message class is required")
	ErrSubjectRequired     = sterrors.New("smartmessage: subject is required")
	ErrTransportRequired   = sterrors.New("smartmessage: transport is required")
	ErrDispatcherRequired  = sterrors.New("smartmessage: dispatcher is required")
	ErrNotConnected        = sterrors.New("smartmessage: not connected")
)

// ConnectionError wraps a failed broker connect attempt. The adapter does
// not retry internally; the caller decides whether to try again.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("smartmessage: failed to connect: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// NewConnectionError wraps err as a ConnectionError.
func NewConnectionError(err error) error {
	return &ConnectionError{Cause: err}
}

// PayloadTooLargeError reports an outbound payload that exceeds the
// configured maximum. Nothing is sent when this error is returned.
type PayloadTooLargeError struct {
	Size  int
	Limit int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("smartmessage: payload of %d bytes exceeds maximum of %d bytes", e.Size, e.Limit)
}
