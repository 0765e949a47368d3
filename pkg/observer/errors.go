package observer

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("observer: nil handler")

	// ErrNotComparable is returned for handlers that cannot be identified for deregistration.
	ErrNotComparable = errors.New("observer: handler is not comparable")

	// ErrTimeout matches every *TimeoutError via errors.Is.
	ErrTimeout = errors.New("observer: handler timed out")
)

// SignatureError reports a phase method whose signature cannot be invoked.
type SignatureError struct {
	Handler  string
	Method   string
	Expected string
	Got      string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("observer: %s.%s has signature %s; expected no parameters or a single parameter of type %s",
		e.Handler, e.Method, e.Got, e.Expected)
}

// TimeoutError reports a handler that did not finish within the notification timeout.
type TimeoutError struct {
	Handler string
	Phase   Phase
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("observer: %s %s did not complete within %s", e.Handler, e.Phase, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// InvocationError wraps a failure raised while invoking a handler.
// Normalize strips it before errors reach an ErrorSink.
type InvocationError struct {
	Handler string
	Phase   Phase
	Cause   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("observer: %s %s: %v", e.Handler, e.Phase, e.Cause)
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// Normalize returns the underlying cause of a handler failure.
// Exactly one InvocationError layer is removed; any other error is returned as is.
func Normalize(err error) error {
	if inv, ok := err.(*InvocationError); ok && inv.Cause != nil {
		return inv.Cause
	}
	return err
}

// IsTimeout reports whether err is a handler timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
