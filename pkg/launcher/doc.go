// Package launcher hosts one application under a lifecycle.
//
// A Launcher composes the pieces of lifeline around a start and a stop
// action: the lifecycle state machine, the status recorder, the
// process-wide shutdown coordinator, the interactive CLI engine and any
// plugins.
//
// # Basic Usage
//
//	l, err := launcher.New(launcher.Config{Name: "api", CLI: true}, start, stop,
//	    launcher.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	return l.Run(ctx)
//
// Run starts the lifecycle and blocks until it halts, either because ctx
// was cancelled, an operator typed the stop command, a plugin stopped it,
// or a termination signal arrived.
//
// # Plugins
//
// Plugins are initialized in registration order before the lifecycle starts
// and shut down in reverse order after it halts. A plugin usually registers
// itself as a lifecycle observer in Initialize:
//
//	l, err := launcher.New(cfg, start, stop,
//	    stopwatcher.WithStopWatcher(),
//	    workdircleanup.WithWorkDirCleanup(),
//	)
package launcher
