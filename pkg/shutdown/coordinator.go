package shutdown

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/bft-labs/lifeline/pkg/log"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRuntime sets the hook facility. The default is a new SignalRuntime.
func WithRuntime(rt Runtime) Option {
	return func(c *Coordinator) {
		c.runtime = rt
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(c *Coordinator) {
		c.logger = log.OrNoop(l)
	}
}

// Coordinator keeps a reference-counted set of operations behind one hook.
// Register, Deregister and the hook's snapshot share a single lock.
type Coordinator struct {
	runtime Runtime
	logger  log.Logger

	mu        sync.Mutex
	ops       []Operation
	hook      *Hook
	executing bool
}

// New creates a coordinator with no operations and no installed hook.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{logger: log.NoopLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.runtime == nil {
		c.runtime = NewSignalRuntime(WithRuntimeLogger(c.logger))
	}
	return c
}

// Register adds op. The first registration installs the hook.
// Registering an operation twice is a no-op.
func (c *Coordinator) Register(op Operation) error {
	if op == nil {
		return ErrNilOperation
	}
	if t := reflect.TypeOf(op); !t.Comparable() {
		return fmt.Errorf("%w: %s", ErrNotComparable, t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Contains(c.ops, op) {
		return nil
	}

	if c.hook == nil {
		hook := NewHook("lifeline-shutdown", c.execute)
		if err := c.runtime.AddHook(hook); err != nil {
			return fmt.Errorf("install shutdown hook: %w", err)
		}
		c.hook = hook
		c.logger.Debug("shutdown hook installed")
	}

	c.ops = append(c.ops, op)
	registered.Inc()
	c.logger.Debug("shutdown operation registered", log.String("operation", describe(op)))
	return nil
}

// Deregister removes op. Removing the last operation uninstalls the hook.
// While the hook is executing the removal is deferred until it returns,
// whichever goroutine deregisters.
func (c *Coordinator) Deregister(op Operation) {
	if op == nil || !reflect.TypeOf(op).Comparable() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := slices.Index(c.ops, op)
	if idx < 0 {
		return
	}
	c.ops = slices.Delete(c.ops, idx, idx+1)
	registered.Dec()
	c.logger.Debug("shutdown operation deregistered", log.String("operation", describe(op)))

	if len(c.ops) > 0 || c.hook == nil || c.executing {
		return
	}
	c.releaseLocked()
}

func (c *Coordinator) releaseLocked() {
	if !c.runtime.RemoveHook(c.hook) {
		c.logger.Debug("shutdown hook already released by runtime")
	}
	c.hook = nil
	c.logger.Debug("shutdown hook removed")
}

// Len returns the number of registered operations.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ops)
}

// Contains reports whether op is registered.
func (c *Coordinator) Contains(op Operation) bool {
	if op == nil || !reflect.TypeOf(op).Comparable() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.ops, op)
}

// Installed reports whether the hook is installed with the runtime.
func (c *Coordinator) Installed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hook != nil
}

// execute is the hook body.
func (c *Coordinator) execute() {
	c.mu.Lock()
	c.executing = true
	ops := slices.Clone(c.ops)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.executing = false
		if len(c.ops) == 0 && c.hook != nil {
			c.releaseLocked()
		}
	}()

	c.logger.Info("running shutdown operations", log.Int("count", len(ops)))
	for _, op := range ops {
		c.run(op)
	}
}

func (c *Coordinator) run(op Operation) {
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = op.Run() })

	switch rec := pc.Recovered(); {
	case rec != nil:
		executed.WithLabelValues(resultPanic).Inc()
		c.logger.Error("shutdown operation panicked",
			log.String("operation", describe(op)),
			log.Err(rec.AsError()),
		)
	case err != nil:
		executed.WithLabelValues(resultError).Inc()
		c.logger.Error("shutdown operation failed",
			log.String("operation", describe(op)),
			log.Err(err),
		)
	default:
		executed.WithLabelValues(resultOK).Inc()
	}
}
