package stopwatcher

import "github.com/bft-labs/lifeline/pkg/launcher"

// WithStopWatcher returns a launcher Option that stops the application when
// the marker file appears in its working directory.
//
// Usage:
//
//	l, err := launcher.New(cfg, start, stop,
//	    stopwatcher.WithStopWatcher(stopwatcher.Config{
//	        Marker:        ".stop-now",
//	        DebounceDelay: 50 * time.Millisecond,
//	    }),
//	)
func WithStopWatcher(cfg Config) launcher.Option {
	return launcher.WithPlugin(New(cfg))
}

// WithDefaultStopWatcher returns a launcher Option watching for the marker
// configured on the launcher, or .lifeline-stop.
func WithDefaultStopWatcher() launcher.Option {
	return WithStopWatcher(DefaultConfig())
}
