package workdircleanup

import "github.com/bft-labs/lifeline/pkg/launcher"

// WithWorkDirCleanup returns a launcher Option that removes the working
// directory on shutdown when the launcher config sets DeleteOnShutdown.
//
// Usage:
//
//	l, err := launcher.New(launcher.Config{WorkDir: dir, DeleteOnShutdown: true},
//	    start, stop,
//	    workdircleanup.WithWorkDirCleanup(),
//	)
func WithWorkDirCleanup() launcher.Option {
	return launcher.WithPlugin(New())
}
