package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrNoJob is returned when a bounded pop on a job queue times out
	ErrNoJob = errors.New("no job available")
	// ErrNoMessage is returned when a bounded pop on the worker or result queue times out
	ErrNoMessage = errors.New("no message available")
	// ErrPingUnsupported is returned when the broker cannot carry broadcasts
	ErrPingUnsupported = errors.New("broker does not support ping broadcasts")
)

// TransportError wraps a broker failure with the operation and queue it happened on
type TransportError struct {
	Op    string
	Queue string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s on %s: %v", e.Op, e.Queue, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err wraps a TransportError
func IsTransportError(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}
