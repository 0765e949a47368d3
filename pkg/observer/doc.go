// Package observer dispatches lifecycle phase notifications to registered
// handlers.
//
// A handler is any comparable value (usually a pointer) with one or more
// methods named after a phase: Starting, Started, Stopping, Stopped. Each
// such method must take no arguments or a single argument the observed
// subject is assignable to, and may return an error:
//
//	type cleanup struct{}
//
//	func (c *cleanup) Stopping(l *lifecycle.Lifecycle) error { ... }
//	func (c *cleanup) Stopped()                              { ... }
//
// Signatures are validated when the handler is registered, so a misspelled
// parameter type fails fast instead of being silently ignored at
// notification time. Closures can be registered directly with
// [Registry.RegisterFunc].
//
// [Registry.Notify] runs every handler of a phase concurrently and returns
// once all of them have finished, failed or exceeded the configured timeout.
// Failures are handed to an [ErrorSink]; they never abort other handlers.
package observer
