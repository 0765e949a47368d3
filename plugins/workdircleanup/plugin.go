// Package workdircleanup removes the application working directory on
// shutdown.
//
// The removal is registered with the process shutdown coordinator so it
// also runs when the process is terminated by a signal. After a clean stop
// the operation is deregistered and the directory is removed when the
// launcher shuts the plugin down.
package workdircleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bft-labs/lifeline/pkg/launcher"
	"github.com/bft-labs/lifeline/pkg/lifecycle"
	"github.com/bft-labs/lifeline/pkg/log"
	"github.com/bft-labs/lifeline/pkg/shutdown"
)

// Plugin deletes the working directory.
type Plugin struct {
	mu sync.Mutex

	dir    string
	logger log.Logger
	coord  *shutdown.Coordinator
	lc     *lifecycle.Lifecycle
	op     *shutdown.FuncOperation
}

// New creates a working directory cleanup plugin.
func New() *Plugin {
	return &Plugin{logger: log.NoopLogger{}}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "workdircleanup"
}

// Initialize registers the removal when DeleteOnShutdown is set.
func (p *Plugin) Initialize(_ context.Context, cfg launcher.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger = log.OrNoop(cfg.Logger)
	if !cfg.DeleteOnShutdown {
		p.logger.Debug("work dir cleanup disabled")
		return nil
	}
	if cfg.WorkDir == "" {
		p.logger.Warn("work dir cleanup disabled: no working directory configured")
		return nil
	}
	if cfg.Shutdown == nil || cfg.Lifecycle == nil {
		return errors.New("workdircleanup: shutdown coordinator and lifecycle are required")
	}

	dir, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return fmt.Errorf("resolve work dir: %w", err)
	}
	if dir == filepath.Dir(dir) {
		return fmt.Errorf("workdircleanup: refusing to delete %s", dir)
	}

	p.dir = dir
	p.coord = cfg.Shutdown
	p.lc = cfg.Lifecycle
	p.op = shutdown.Func("remove "+dir, p.remove)

	if err := p.coord.Register(p.op); err != nil {
		return err
	}
	if err := p.lc.Register(p); err != nil {
		p.coord.Deregister(p.op)
		return err
	}
	p.logger.Info("work dir will be deleted on shutdown", log.String("dir", dir))
	return nil
}

// Stopped deregisters the shutdown operation; Shutdown performs the removal
// once every observer has finished with the directory.
func (p *Plugin) Stopped() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.op != nil {
		p.coord.Deregister(p.op)
	}
}

// Shutdown removes the working directory.
func (p *Plugin) Shutdown(context.Context) error {
	p.mu.Lock()
	op := p.op
	p.op = nil
	p.mu.Unlock()

	if op == nil {
		return nil
	}
	p.coord.Deregister(op)
	p.lc.Deregister(p)
	return p.remove()
}

// Registered reports whether the removal is pending with the coordinator.
func (p *Plugin) Registered() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.op != nil && p.coord.Contains(p.op)
}

func (p *Plugin) remove() error {
	if err := os.RemoveAll(p.dir); err != nil {
		p.logger.Error("failed to delete work dir", log.String("dir", p.dir), log.Err(err))
		return fmt.Errorf("delete work dir: %w", err)
	}
	p.logger.Info("work dir deleted", log.String("dir", p.dir))
	return nil
}

// Ensure Plugin implements launcher.Plugin.
var _ launcher.Plugin = (*Plugin)(nil)
