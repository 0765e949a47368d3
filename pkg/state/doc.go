// Package state persists the status of a running lifecycle instance.
//
// A Recorder is a lifecycle observer that writes a Status document when the
// instance has started and again once it has stopped. The FileRepository
// writes status.json atomically (temp file, then rename) so external tools
// never read a partial document.
//
// # Usage
//
//	repo := state.NewFileRepository(workDir, "")
//	if err := lc.Register(state.NewRecorder(repo)); err != nil {
//	    return err
//	}
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package state
