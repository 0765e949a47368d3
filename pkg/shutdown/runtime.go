package shutdown

import (
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/sourcegraph/conc"

	"github.com/bft-labs/lifeline/pkg/log"
)

// Hook is a function installed with a Runtime.
type Hook struct {
	name string
	fn   func()
}

// NewHook creates a named hook.
func NewHook(name string, fn func()) *Hook {
	return &Hook{name: name, fn: fn}
}

// Name returns the hook name.
func (h *Hook) Name() string { return h.name }

// Run executes the hook body.
func (h *Hook) Run() {
	if h.fn != nil {
		h.fn()
	}
}

// Runtime is the process shutdown-hook facility.
type Runtime interface {
	// AddHook installs h. It returns ErrShutdownInProgress once hooks have run.
	AddHook(h *Hook) error
	// RemoveHook uninstalls h and reports whether it was installed.
	RemoveHook(h *Hook) bool
}

// RuntimeOption configures a SignalRuntime.
type RuntimeOption func(*SignalRuntime)

// WithSignals overrides the signals that trigger the hooks.
func WithSignals(signals ...os.Signal) RuntimeOption {
	return func(r *SignalRuntime) {
		r.signals = signals
	}
}

// WithExitFunc replaces os.Exit.
func WithExitFunc(exit func(code int)) RuntimeOption {
	return func(r *SignalRuntime) {
		r.exit = exit
	}
}

// WithRuntimeLogger sets the logger.
func WithRuntimeLogger(l log.Logger) RuntimeOption {
	return func(r *SignalRuntime) {
		r.logger = log.OrNoop(l)
	}
}

// SignalRuntime runs its hooks concurrently when a termination signal
// arrives, then exits with 128+signal. The signal subscription exists only
// while at least one hook is installed. Hooks run at most once.
type SignalRuntime struct {
	signals []os.Signal
	exit    func(code int)
	logger  log.Logger

	mu    sync.Mutex
	hooks []*Hook
	ran   bool
	sigCh chan os.Signal
	done  chan struct{}
}

// NewSignalRuntime creates a runtime listening for SIGINT, SIGTERM and SIGHUP.
func NewSignalRuntime(opts ...RuntimeOption) *SignalRuntime {
	r := &SignalRuntime{
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP},
		exit:    os.Exit,
		logger:  log.NoopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddHook installs h. Adding an installed hook is a no-op.
func (r *SignalRuntime) AddHook(h *Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ran {
		return ErrShutdownInProgress
	}
	if slices.Contains(r.hooks, h) {
		return nil
	}
	r.hooks = append(r.hooks, h)

	if r.sigCh == nil {
		r.sigCh = make(chan os.Signal, 1)
		r.done = make(chan struct{})
		signal.Notify(r.sigCh, r.signals...)
		go r.wait(r.sigCh, r.done)
	}
	return nil
}

// RemoveHook uninstalls h. It returns false once hooks have run.
func (r *SignalRuntime) RemoveHook(h *Hook) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ran {
		return false
	}
	idx := slices.Index(r.hooks, h)
	if idx < 0 {
		return false
	}
	r.hooks = slices.Delete(r.hooks, idx, idx+1)

	if len(r.hooks) == 0 && r.sigCh != nil {
		signal.Stop(r.sigCh)
		close(r.done)
		r.sigCh, r.done = nil, nil
	}
	return true
}

// Len returns the number of installed hooks.
func (r *SignalRuntime) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}

// RunHooks runs every installed hook concurrently and waits for all of
// them. Only the first call has any effect.
func (r *SignalRuntime) RunHooks() {
	r.mu.Lock()
	if r.ran {
		r.mu.Unlock()
		return
	}
	r.ran = true
	hooks := slices.Clone(r.hooks)
	r.mu.Unlock()

	var wg conc.WaitGroup
	for _, h := range hooks {
		wg.Go(h.Run)
	}
	if rec := wg.WaitAndRecover(); rec != nil {
		r.logger.Error("shutdown hook panicked", log.Err(rec.AsError()))
	}
}

// Exit runs the hooks and terminates the process with code.
func (r *SignalRuntime) Exit(code int) {
	r.RunHooks()
	r.exit(code)
}

func (r *SignalRuntime) wait(sigCh <-chan os.Signal, done <-chan struct{}) {
	select {
	case sig := <-sigCh:
		// The subscription is kept so repeated signals are absorbed while hooks run.
		r.logger.Info("termination signal received", log.String("signal", sig.String()))
		r.Exit(exitCode(sig))
	case <-done:
	}
}

func exitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}
