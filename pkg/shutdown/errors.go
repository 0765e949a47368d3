package shutdown

import "errors"

var (
	// ErrNilOperation is returned when registering a nil operation.
	ErrNilOperation = errors.New("shutdown: nil operation")

	// ErrNotComparable is returned for operations that cannot be deregistered by identity.
	ErrNotComparable = errors.New("shutdown: operation is not comparable")

	// ErrShutdownInProgress is returned by a Runtime that has already run its hooks.
	ErrShutdownInProgress = errors.New("shutdown: shutdown in progress")
)
