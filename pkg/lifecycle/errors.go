package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsoundShutdown matches every *UnsoundShutdownError via errors.Is.
var ErrUnsoundShutdown = errors.New("problems occurred during application shutdown")

// StartError wraps a failure of the start action.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("lifecycle: start action failed: %v", e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// UnsoundShutdownError aggregates the failures of a stop sequence.
// The lifecycle has still reached StateHalted when it is returned.
type UnsoundShutdownError struct {
	Errors []error
}

func (e *UnsoundShutdownError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return ErrUnsoundShutdown.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *UnsoundShutdownError) Unwrap() []error { return e.Errors }

func (e *UnsoundShutdownError) Is(target error) bool {
	return target == ErrUnsoundShutdown
}
