package lifecycle

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"

	"github.com/bft-labs/lifeline/pkg/log"
	"github.com/bft-labs/lifeline/pkg/observer"
)

// State represents the lifecycle state of a hosted application.
type State int32

const (
	StateHalted State = iota
	StateStarting
	StateRunning
	StateStopping
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateHalted:
		return "Halted"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// Action starts or stops the hosted application.
type Action func(ctx context.Context) error

// EventEmitter is called synchronously after every state change.
type EventEmitter interface {
	OnStateChange(previous, current State)
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithLogger sets the logger. The default discards output.
func WithLogger(l log.Logger) Option {
	return func(lc *Lifecycle) {
		lc.logger = log.OrNoop(l)
	}
}

// WithNotifyTimeout bounds each observer invocation.
func WithNotifyTimeout(d time.Duration) Option {
	return func(lc *Lifecycle) {
		lc.notifyTimeout = d
	}
}

// WithName sets a display name used in logs and CLI output.
func WithName(name string) Option {
	return func(lc *Lifecycle) {
		lc.name = name
	}
}

// WithEventEmitter registers a synchronous state change callback.
func WithEventEmitter(e EventEmitter) Option {
	return func(lc *Lifecycle) {
		lc.emitter = e
	}
}

// WithHaltHandler sets a callback run at the end of every stop, after the
// Stopped observers have returned. It receives the error Stop returns.
func WithHaltHandler(fn func(err error)) Option {
	return func(lc *Lifecycle) {
		lc.onHalt = fn
	}
}

// Lifecycle drives a start action and a stop action through
// Halted -> Starting -> Running -> Stopping -> Halted, notifying observers
// around each action. The state field is the only guard: calls that find
// the lifecycle in the wrong state are no-ops, which also makes re-entrant
// calls from observers safe.
type Lifecycle struct {
	id            string
	name          string
	state         atomic.Int32
	runningSince  atomic.Int64
	start         Action
	stop          Action
	observers     *observer.Registry[*Lifecycle]
	notifyTimeout time.Duration
	logger        log.Logger
	emitter       EventEmitter
	onHalt        func(err error)
}

// New creates a halted lifecycle bound to start and stop.
// A nil action is treated as a no-op.
func New(start, stop Action, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		id:            uuid.NewString(),
		name:          "application",
		start:         start,
		stop:          stop,
		notifyTimeout: observer.DefaultTimeout,
		logger:        log.NoopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.observers = observer.New(l,
		observer.WithTimeout(l.notifyTimeout),
		observer.WithLogger(l.logger),
	)
	return l
}

// ID returns the unique identifier of this lifecycle.
func (l *Lifecycle) ID() string { return l.id }

// Name returns the display name.
func (l *Lifecycle) Name() string { return l.name }

// Observers returns the registry used for phase notifications.
func (l *Lifecycle) Observers() *observer.Registry[*Lifecycle] { return l.observers }

// Register is shorthand for Observers().Register.
func (l *Lifecycle) Register(handler any) error {
	return l.observers.Register(handler)
}

// Deregister is shorthand for Observers().Deregister.
func (l *Lifecycle) Deregister(handler any) {
	l.observers.Deregister(handler)
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// CanStart returns true if Start() would begin a transition.
func (l *Lifecycle) CanStart() bool {
	return l.State() == StateHalted
}

// CanStop returns true if Stop() would begin a transition.
func (l *Lifecycle) CanStop() bool {
	return l.State() == StateRunning
}

// IsRunning reports whether the lifecycle is in StateRunning.
func (l *Lifecycle) IsRunning() bool {
	return l.State() == StateRunning
}

// Uptime returns how long the lifecycle has been running, or zero.
func (l *Lifecycle) Uptime() time.Duration {
	since := l.runningSince.Load()
	if since == 0 || !l.IsRunning() {
		return 0
	}
	return time.Since(time.Unix(0, since))
}

// Start notifies Starting observers, runs the start action, notifies Started
// observers and enters StateRunning.
//
// A Starting observer failure aborts before the start action and is returned.
// A Started observer failure forces the stop path and is returned after the
// lifecycle has halted. Start is a no-op unless the lifecycle is halted.
func (l *Lifecycle) Start(ctx context.Context) error {
	if !l.transition(StateHalted, StateStarting) {
		l.logger.Debug("start ignored", log.Instance(l.id), log.State(l.State().String()))
		return nil
	}

	if err := l.notifyFirst(ctx, observer.Starting); err != nil {
		l.logger.Error("starting observer failed, start aborted", log.Instance(l.id), log.Err(err))
		l.transition(StateStarting, StateHalted)
		return err
	}

	if err := l.run(ctx, l.start); err != nil {
		l.logger.Error("start action failed", log.Instance(l.id), log.Err(err))
		l.transition(StateStarting, StateHalted)
		l.observers.Notify(ctx, observer.Stopped, l.logFailure(observer.Stopped))
		return &StartError{Err: err}
	}

	if err := l.notifyFirst(ctx, observer.Started); err != nil {
		l.logger.Error("started observer failed, enforcing termination", log.Instance(l.id), log.Err(err))
		l.enterRunning()
		if stopErr := l.halt(ctx); stopErr != nil {
			l.logger.Error("enforced termination was unsound", log.Instance(l.id), log.Err(stopErr))
		}
		return err
	}

	l.enterRunning()
	return nil
}

// Stop notifies Stopping observers, runs the stop action, enters StateHalted
// and notifies Stopped observers. Observer failures do not interrupt the
// sequence; they are reported together as an *UnsoundShutdownError once the
// lifecycle has halted. Stop is a no-op unless the lifecycle is running.
func (l *Lifecycle) Stop(ctx context.Context) error {
	return l.halt(ctx)
}

func (l *Lifecycle) halt(ctx context.Context) error {
	if !l.transition(StateRunning, StateStopping) {
		l.logger.Debug("stop ignored", log.Instance(l.id), log.State(l.State().String()))
		return nil
	}

	var errs []error
	collect := func(err error) { errs = append(errs, err) }

	l.observers.Notify(ctx, observer.Stopping, collect)

	if err := l.run(ctx, l.stop); err != nil {
		l.logger.Error("stop action failed", log.Instance(l.id), log.Err(err))
		errs = append(errs, err)
	}

	l.transition(StateStopping, StateHalted)
	l.observers.Notify(ctx, observer.Stopped, collect)

	var err error
	if len(errs) > 0 {
		err = &UnsoundShutdownError{Errors: errs}
	}
	if l.onHalt != nil {
		l.onHalt(err)
	}
	return err
}

// notifyFirst notifies phase observers and returns the first failure.
func (l *Lifecycle) notifyFirst(ctx context.Context, phase observer.Phase) error {
	var first error
	l.observers.Notify(ctx, phase, func(err error) {
		if first == nil {
			first = err
		}
	})
	return first
}

func (l *Lifecycle) logFailure(phase observer.Phase) observer.ErrorSink {
	return func(err error) {
		l.logger.Warn("observer failed", log.Instance(l.id), log.Phase(phase.String()), log.Err(err))
	}
}

// run executes an action, converting a panic into an error.
func (l *Lifecycle) run(ctx context.Context, action Action) error {
	if action == nil {
		return nil
	}
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = action(ctx) })
	if rec := pc.Recovered(); rec != nil {
		return rec.AsError()
	}
	return err
}

func (l *Lifecycle) enterRunning() {
	l.runningSince.Store(time.Now().UnixNano())
	l.transition(StateStarting, StateRunning)
}

// transition moves from -> to with a compare-and-swap.
func (l *Lifecycle) transition(from, to State) bool {
	if !l.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	recordTransition(from, to)

	l.logger.Info("state transition",
		log.Instance(l.id),
		log.String("from", from.String()),
		log.String("to", to.String()),
	)
	if l.emitter != nil {
		l.emitter.OnStateChange(from, to)
	}
	return true
}
