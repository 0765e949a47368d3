package cli

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/bft-labs/lifeline/pkg/log"
)

// DefaultExecutorTimeout bounds each stage of executor shutdown.
const DefaultExecutorTimeout = 5 * time.Second

var (
	// ErrExecutorStopped is returned by Submit after Stop.
	ErrExecutorStopped = errors.New("cli: executor stopped")

	// ErrQueueFull is returned by Submit when too many commands are pending.
	ErrQueueFull = errors.New("cli: command queue full")

	// ErrShutdownTimeout is returned by Stop when a task outlived forced shutdown.
	ErrShutdownTimeout = errors.New("cli: executor did not terminate")
)

// Task is a unit of work run by the Executor.
type Task func(ctx context.Context) error

type job struct {
	name string
	fn   Task
}

// Executor runs tasks one at a time on a dedicated goroutine.
// Task failures and panics are logged and do not stop the worker.
type Executor struct {
	logger log.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	jobs   chan job
	closed bool
}

// NewExecutor starts the worker goroutine.
func NewExecutor(logger log.Logger) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		logger: log.OrNoop(logger),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		jobs:   make(chan job, 32),
	}
	go e.work()
	return e
}

// Submit queues fn without blocking.
func (e *Executor) Submit(name string, fn Task) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrExecutorStopped
	}
	select {
	case e.jobs <- job{name: name, fn: fn}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (e *Executor) work() {
	defer close(e.done)
	for j := range e.jobs {
		if e.ctx.Err() != nil {
			e.logger.Debug("dropping queued command", log.String(log.CommandKey, j.name))
			continue
		}
		e.run(j)
	}
}

func (e *Executor) run(j job) {
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = j.fn(e.ctx) })

	if rec := pc.Recovered(); rec != nil {
		e.logger.Error("command panicked", log.String(log.CommandKey, j.name), log.Err(rec.AsError()))
		return
	}
	if err != nil {
		e.logger.Error("command failed", log.String(log.CommandKey, j.name), log.Err(err))
	}
}

// Stop refuses new tasks and waits up to timeout for queued ones to finish.
// After that it cancels the running task, drops the queue and waits up to
// timeout again. Cancelling ctx abandons the wait.
func (e *Executor) Stop(ctx context.Context, timeout time.Duration) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.jobs)
	e.mu.Unlock()

	if timeout <= 0 {
		timeout = DefaultExecutorTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		e.logger.Error("command executor shutdown interrupted", log.Err(ctx.Err()))
		return ctx.Err()
	case <-timer.C:
	}

	forcedShutdowns.Inc()
	e.logger.Warn("command executor did not terminate in time, forcing shutdown",
		log.Duration("timeout", timeout),
	)
	e.cancel()
	timer.Reset(timeout)

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		e.logger.Error("interrupted while awaiting forced executor shutdown", log.Err(ctx.Err()))
		return ctx.Err()
	case <-timer.C:
		e.logger.Error("command executor still running after forced shutdown")
		return ErrShutdownTimeout
	}
}

// Done is closed when the worker has exited.
func (e *Executor) Done() <-chan struct{} {
	return e.done
}
