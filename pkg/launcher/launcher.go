package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/lifeline/internal/commands"
	"github.com/bft-labs/lifeline/internal/provider"
	"github.com/bft-labs/lifeline/pkg/cli"
	"github.com/bft-labs/lifeline/pkg/lifecycle"
	"github.com/bft-labs/lifeline/pkg/log"
	"github.com/bft-labs/lifeline/pkg/shutdown"
	"github.com/bft-labs/lifeline/pkg/state"
)

// ErrAlreadyRun is returned when Run is called twice.
var ErrAlreadyRun = errors.New("launcher: already run")

// Launcher hosts one application lifecycle.
type Launcher struct {
	config   Config
	logger   log.Logger
	plugins  []Plugin
	lc       *lifecycle.Lifecycle
	coord    *shutdown.Coordinator
	engine   *cli.Engine
	recorder *state.Recorder
	stopOp   *shutdown.FuncOperation

	commandProviders *provider.Registry[provider.CommandProvider]
	logControls      *provider.Registry[provider.LogControl]

	halted      chan struct{}
	haltOnce    sync.Once
	stopPending atomic.Bool

	mu      sync.Mutex
	ran     bool
	stopErr error
	metrics *metricsServer
}

// New builds a launcher around start and stop. Nothing runs until Run.
func New(cfg Config, start, stop lifecycle.Action, opts ...Option) (*Launcher, error) {
	cfg.SetDefaults()
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := options{logger: log.NoopLogger{}, input: os.Stdin, output: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Launcher{
		config:  cfg,
		logger:  o.logger,
		plugins: o.plugins,
		halted:  make(chan struct{}),
	}

	l.logControls = provider.NewRegistry[provider.LogControl](provider.NewZerologControl())
	for _, c := range o.controls {
		if err := l.logControls.Add(c); err != nil {
			return nil, err
		}
	}
	control, _ := l.logControls.Best()
	l.commandProviders = provider.NewRegistry[provider.CommandProvider](commands.NewProvider(control))
	for _, p := range o.commands {
		if err := l.commandProviders.Add(p); err != nil {
			return nil, err
		}
	}

	l.lc = lifecycle.New(start, stop,
		lifecycle.WithName(cfg.Name),
		lifecycle.WithLogger(l.logger),
		lifecycle.WithNotifyTimeout(cfg.NotifyTimeout),
		lifecycle.WithHaltHandler(l.onHalt),
	)

	coordOpts := []shutdown.Option{shutdown.WithLogger(l.logger)}
	if o.runtime != nil {
		coordOpts = append(coordOpts, shutdown.WithRuntime(o.runtime))
	}
	l.coord = shutdown.New(coordOpts...)
	l.stopOp = shutdown.Func("stop "+cfg.Name, func() error {
		return l.Stop(context.Background())
	})

	if cfg.StatusFile != "" {
		repo := state.NewFileRepository(cfg.WorkDir, cfg.StatusFile)
		recOpts := []state.RecorderOption{state.WithLogger(l.logger)}
		if o.childPID != nil {
			recOpts = append(recOpts, state.WithChildPID(o.childPID))
		}
		l.recorder = state.NewRecorder(repo, recOpts...)
		if err := l.lc.Register(l.recorder); err != nil {
			return nil, fmt.Errorf("register status recorder: %w", err)
		}
	}

	if cfg.CLI {
		l.engine = cli.NewEngine(
			cli.WithInput(o.input),
			cli.WithOutput(o.output),
			cli.WithLogger(l.logger),
			cli.WithPollInterval(cfg.PollInterval),
			cli.WithExecutorTimeout(cfg.ExecutorTimeout),
		)
		hookup := cli.NewHookup(l.engine, provider.Commands(l.commandProviders))
		if err := l.lc.Register(hookup); err != nil {
			return nil, fmt.Errorf("register cli hookup: %w", err)
		}
	}

	for _, h := range o.observers {
		if err := l.lc.Register(h); err != nil {
			return nil, fmt.Errorf("register observer: %w", err)
		}
	}

	return l, nil
}

// Lifecycle returns the hosted lifecycle.
func (l *Launcher) Lifecycle() *lifecycle.Lifecycle { return l.lc }

// Coordinator returns the shutdown coordinator.
func (l *Launcher) Coordinator() *shutdown.Coordinator { return l.coord }

// Engine returns the CLI engine, or nil when the CLI is disabled.
func (l *Launcher) Engine() *cli.Engine { return l.engine }

// Recorder returns the status recorder, or nil when no status file is set.
func (l *Launcher) Recorder() *state.Recorder { return l.recorder }

// MetricsAddr returns the bound metrics address, or "" when not serving.
func (l *Launcher) MetricsAddr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.metrics == nil {
		return ""
	}
	return l.metrics.Addr()
}

// Run starts the lifecycle and blocks until it has halted and every Stopped
// observer has returned. Cancelling ctx stops the lifecycle. The returned
// error is the start failure or the stop failure.
func (l *Launcher) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.ran {
		l.mu.Unlock()
		return ErrAlreadyRun
	}
	l.ran = true
	l.mu.Unlock()

	if l.config.MetricsAddr != "" {
		m, err := startMetrics(l.config.MetricsAddr, l.logger)
		if err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		l.mu.Lock()
		l.metrics = m
		l.mu.Unlock()
	}
	defer l.closeMetrics()

	// Registered before plugins so a signal stops the application before
	// any plugin operation runs.
	if err := l.coord.Register(l.stopOp); err != nil {
		return err
	}
	defer l.coord.Deregister(l.stopOp)

	initialized, err := l.initPlugins(ctx)
	defer l.shutdownPlugins(initialized)
	if err != nil {
		return err
	}
	defer l.closeEngine()

	if err := l.lc.Start(ctx); err != nil {
		return err
	}
	if l.stopPending.Load() {
		l.logger.Info("stop requested during start, stopping application")
		_ = l.lc.Stop(context.Background())
	}
	l.logger.Info("application running", log.String("name", l.config.Name), log.Instance(l.lc.ID()))

	select {
	case <-l.halted:
	case <-ctx.Done():
		l.logger.Info("context done, stopping application", log.Err(ctx.Err()))
		_ = l.Stop(context.Background())
		<-l.halted
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopErr
}

// Stop stops the lifecycle. It is safe to call from any goroutine.
// A stop requested while the lifecycle is starting is carried out by Run
// once the start completes; Stop then returns nil without waiting.
func (l *Launcher) Stop(ctx context.Context) error {
	if l.lc.State() == lifecycle.StateStarting {
		l.stopPending.Store(true)
		// Run checks the flag only after the state has left Starting.
		if l.lc.State() == lifecycle.StateStarting {
			return nil
		}
	}
	return l.lc.Stop(ctx)
}

// onHalt runs once lifecycle.Stop has notified every Stopped observer.
func (l *Launcher) onHalt(err error) {
	if err != nil {
		l.mu.Lock()
		l.stopErr = errors.Join(l.stopErr, err)
		l.mu.Unlock()
	}
	l.haltOnce.Do(func() { close(l.halted) })
}

func (l *Launcher) initPlugins(ctx context.Context) ([]Plugin, error) {
	cfg := PluginConfig{
		Name:             l.config.Name,
		WorkDir:          l.config.WorkDir,
		StopMarker:       l.config.StopMarker,
		DeleteOnShutdown: l.config.DeleteOnShutdown,
		Lifecycle:        l.lc,
		Shutdown:         l.coord,
		Logger:           l.logger,
	}

	var initialized []Plugin
	for _, p := range l.plugins {
		if err := p.Initialize(ctx, cfg); err != nil {
			l.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			return initialized, fmt.Errorf("initialize plugin %s: %w", p.Name(), err)
		}
		l.logger.Info("plugin initialized", log.String("plugin", p.Name()))
		initialized = append(initialized, p)
	}
	return initialized, nil
}

// shutdownPlugins runs in reverse registration order.
func (l *Launcher) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			l.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			l.logger.Debug("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
}

func (l *Launcher) closeEngine() {
	if l.engine == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*l.config.ExecutorTimeout)
	defer cancel()
	if err := l.engine.Close(ctx); err != nil {
		l.logger.Warn("cli engine close failed", log.Err(err))
	}
}

func (l *Launcher) closeMetrics() {
	l.mu.Lock()
	m := l.metrics
	l.mu.Unlock()
	if m != nil {
		m.close()
	}
}
