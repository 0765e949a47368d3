// Package log provides the logging port used by every lifeline component.
//
// Components depend on the Logger interface only. The zerolog adapter is the
// implementation used by the launcher binary; the no-op logger is the
// default for embedded use and tests.
//
// # Usage
//
// Build an adapter from configuration:
//
//	logger := log.NewZerologAdapterFromConfig(log.Config{Level: "debug"})
//	logger.Info("instance started", log.Instance(id), log.State("Running"))
//
// Or discard everything:
//
//	logger := log.NewNoopLogger()
//
// # Level Control
//
// [LevelControl] changes the effective zerolog level at runtime. The
// launcher exposes it to operators through the debug-toggle command.
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package log
