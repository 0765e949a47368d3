// Package lifecycle provides the start/stop state machine of a hosted application.
//
// A Lifecycle binds a start action and a stop action and moves through
// Halted, Starting, Running and Stopping. Observers registered on it are
// notified around each action; see package observer for the handler
// conventions.
//
// # Usage
//
//	lc := lifecycle.New(server.Start, server.Stop, lifecycle.WithLogger(logger))
//	_ = lc.Register(&statusWriter{})
//
//	if err := lc.Start(ctx); err != nil {
//	    return err
//	}
//	defer lc.Stop(context.Background())
//
// # State Machine
//
// Valid state transitions:
//   - Halted -> Starting
//   - Starting -> Running, Halted
//   - Running -> Stopping
//   - Stopping -> Halted
//
// Start and Stop called in any other state are no-ops.
//
// # Failure handling
//
// A Starting observer failure returns the lifecycle to Halted without
// running the start action. A start action failure returns a *StartError
// after Stopped observers have been told. A Started observer failure runs the
// full stop sequence before its error is returned. Stop always reaches
// Halted and reports collected failures as an *UnsoundShutdownError.
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
