// Package process runs the hosted application as a child process.
//
// A Runner supplies the start and stop actions of a lifecycle. Start spawns
// the command and, when a ready address is configured, waits until it
// accepts TCP connections. Stop sends SIGTERM to the process group, waits
// for the grace period and then kills it.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/lifeline/pkg/log"
)

var (
	// ErrNotReady is returned when the readiness probe times out.
	ErrNotReady = errors.New("process: not ready")

	// ErrExitedEarly is returned when the process exits before it is ready.
	ErrExitedEarly = errors.New("process: exited before ready")

	// ErrAlreadyStarted is returned by Start while a process is running.
	ErrAlreadyStarted = errors.New("process: already started")
)

// Config describes the hosted process.
type Config struct {
	Command []string
	Dir     string

	// Env is appended to the launcher environment.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer

	// ReadyAddr is probed over TCP after spawn. Empty disables the probe.
	ReadyAddr    string
	ReadyTimeout time.Duration
	StopGrace    time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(r *Runner) {
		r.logger = log.OrNoop(l)
	}
}

// WithExitHandler is called when the process exits without Stop being called.
func WithExitHandler(fn func(err error)) Option {
	return func(r *Runner) {
		r.onExit = fn
	}
}

// Runner owns one child process at a time.
type Runner struct {
	cfg    Config
	logger log.Logger
	onExit func(err error)

	mu       sync.Mutex
	cmd      *exec.Cmd
	exited   chan struct{}
	waitErr  error
	stopping atomic.Bool
}

// NewRunner creates a runner for cfg.
func NewRunner(cfg Config, opts ...Option) *Runner {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 10 * time.Second
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	r := &Runner{cfg: cfg, logger: log.NoopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start spawns the process and waits for readiness.
func (r *Runner) Start(ctx context.Context) error {
	if len(r.cfg.Command) == 0 {
		return errors.New("process: empty command")
	}

	r.mu.Lock()
	if r.cmd != nil {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	cmd := exec.Command(r.cfg.Command[0], r.cfg.Command[1:]...)
	cmd.Dir = r.cfg.Dir
	cmd.Env = append(os.Environ(), r.cfg.Env...)
	cmd.Stdout = r.cfg.Stdout
	cmd.Stderr = r.cfg.Stderr
	configure(cmd)

	if err := cmd.Start(); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("spawn %s: %w", r.cfg.Command[0], err)
	}
	exited := make(chan struct{})
	r.cmd = cmd
	r.exited = exited
	r.stopping.Store(false)
	r.mu.Unlock()

	r.logger.Info("process started",
		log.String("command", r.cfg.Command[0]),
		log.Int("pid", cmd.Process.Pid),
	)
	go r.wait(cmd, exited)

	if r.cfg.ReadyAddr == "" {
		return nil
	}
	if err := r.waitReady(ctx, exited); err != nil {
		r.logger.Error("process not ready, stopping", log.Err(err))
		_ = r.Stop(context.Background())
		return err
	}
	r.logger.Info("process ready", log.String("addr", r.cfg.ReadyAddr))
	return nil
}

func (r *Runner) wait(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()

	r.mu.Lock()
	r.waitErr = err
	r.cmd = nil
	r.mu.Unlock()
	close(exited)

	if r.stopping.Load() {
		r.logger.Info("process exited", log.Int("pid", cmd.Process.Pid))
		return
	}
	r.logger.Warn("process exited unexpectedly", log.Int("pid", cmd.Process.Pid), log.Err(err))
	if r.onExit != nil {
		r.onExit(err)
	}
}

// waitReady dials ReadyAddr with exponential backoff.
func (r *Runner) waitReady(ctx context.Context, exited <-chan struct{}) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadyTimeout)
	defer cancel()

	b := NewBackoff(50*time.Millisecond, time.Second)
	var d net.Dialer
	attempts := 0
	for {
		attempts++
		conn, err := d.DialContext(ctx, "tcp", r.cfg.ReadyAddr)
		if err == nil {
			conn.Close()
			return nil
		}

		timer := time.NewTimer(b.Next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w after %d attempts: %v", ErrNotReady, attempts, err)
		case <-exited:
			timer.Stop()
			return fmt.Errorf("%w: %v", ErrExitedEarly, r.exitErr())
		case <-timer.C:
		}
	}
}

// Stop terminates the process group, escalating to a kill after the grace
// period. Stopping an exited runner is a no-op.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cmd, exited := r.cmd, r.exited
	r.mu.Unlock()
	if cmd == nil {
		return nil
	}
	r.stopping.Store(true)

	if err := terminate(cmd.Process); err != nil {
		r.logger.Debug("terminate failed", log.Err(err))
	}

	grace := time.NewTimer(r.cfg.StopGrace)
	defer grace.Stop()
	select {
	case <-exited:
		return nil
	case <-grace.C:
		r.logger.Warn("process did not exit within grace period, killing",
			log.Duration("grace", r.cfg.StopGrace),
		)
	case <-ctx.Done():
		r.logger.Warn("stop interrupted, killing process", log.Err(ctx.Err()))
	}

	if err := kill(cmd.Process); err != nil {
		r.logger.Debug("kill failed", log.Err(err))
	}
	select {
	case <-exited:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("process %d did not die after kill", cmd.Process.Pid)
	}
}

// PID returns the process id, or zero when nothing runs.
func (r *Runner) PID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil || r.cmd.Process == nil {
		return 0
	}
	return r.cmd.Process.Pid
}

// Exited is closed when the current process exits. It is nil before Start.
func (r *Runner) Exited() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exited
}

func (r *Runner) exitErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waitErr
}
