// Package stopwatcher stops a running application when a marker file is
// created in its working directory.
//
// The watch starts when the lifecycle reaches Started and ends when it
// begins Stopping. The marker is removed before the stop is requested, and
// a stale marker left from an earlier run is removed on start.
package stopwatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/lifeline/pkg/launcher"
	"github.com/bft-labs/lifeline/pkg/lifecycle"
	"github.com/bft-labs/lifeline/pkg/log"
)

// DefaultMarker is used when neither the plugin nor the launcher names one.
const DefaultMarker = ".lifeline-stop"

// Config holds configuration options for the stop watcher plugin.
type Config struct {
	// Marker is the file name to watch for. Empty uses the launcher's
	// StopMarker, then DefaultMarker.
	Marker string

	// DebounceDelay is the delay after the marker appears before stopping.
	// Default: 50 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 50 * time.Millisecond}
}

// Plugin watches the working directory for the stop marker.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	marker        string
	debounceDelay time.Duration

	// Runtime state
	dir      string
	logger   log.Logger
	lc       *lifecycle.Lifecycle
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// New creates a stop watcher plugin.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 50 * time.Millisecond
	}
	return &Plugin{
		marker:        cfg.Marker,
		debounceDelay: cfg.DebounceDelay,
		logger:        log.NoopLogger{},
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "stopwatcher"
}

// Initialize registers the plugin as a lifecycle observer.
func (p *Plugin) Initialize(_ context.Context, cfg launcher.PluginConfig) error {
	if cfg.Lifecycle == nil {
		return errors.New("stopwatcher: no lifecycle")
	}

	p.mu.Lock()
	p.logger = log.OrNoop(cfg.Logger)
	p.lc = cfg.Lifecycle
	p.dir = cfg.WorkDir
	if p.marker == "" {
		p.marker = cfg.StopMarker
	}
	if p.marker == "" {
		p.marker = DefaultMarker
	}
	if p.dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			p.mu.Unlock()
			return err
		}
		p.dir = wd
	}
	p.mu.Unlock()

	return cfg.Lifecycle.Register(p)
}

// Shutdown deregisters the plugin and stops any active watch.
func (p *Plugin) Shutdown(context.Context) error {
	p.mu.Lock()
	lc := p.lc
	p.mu.Unlock()
	if lc != nil {
		lc.Deregister(p)
	}
	p.stopWatching()
	return nil
}

// MarkerPath returns the watched file path.
func (p *Plugin) MarkerPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return filepath.Join(p.dir, p.marker)
}

// Started begins watching. A directory that cannot be watched disables the
// plugin without failing the start.
func (p *Plugin) Started() {
	path := p.MarkerPath()
	if err := os.Remove(path); err == nil {
		p.logger.Info("removed stale stop marker", log.String("path", path))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Error("stop watcher: failed to create watcher", log.Err(err))
		return
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		p.logger.Error("stop watcher: failed to watch directory", log.Err(err))
		watcher.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go p.watchLoop(ctx, watcher)
	p.logger.Debug("stop watcher started", log.String("path", path))
}

// Stopping ends the watch.
func (p *Plugin) Stopping() {
	p.stopWatching()
}

func (p *Plugin) stopWatching() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	if p.debounce != nil {
		p.debounce.Stop()
		p.debounce = nil
	}
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != p.marker {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.scheduleStop()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("stop watcher: watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) scheduleStop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return
	}
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, p.stop)
}

func (p *Plugin) stop() {
	path := p.MarkerPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("stop watcher: failed to remove marker", log.Err(err))
	}
	p.logger.Info("stop marker found, stopping application", log.String("path", path))
	if err := p.lc.Stop(context.Background()); err != nil {
		p.logger.Error("stop requested by marker failed", log.Err(err))
	}
}

// Ensure Plugin implements launcher.Plugin.
var _ launcher.Plugin = (*Plugin)(nil)
