package observer

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/bft-labs/lifeline/pkg/log"
)

// DefaultTimeout bounds a single handler invocation.
const DefaultTimeout = 30 * time.Second

// ErrorSink receives normalized handler failures. Calls are serialized.
type ErrorSink func(err error)

// Option configures a Registry.
type Option func(*options)

type options struct {
	timeout time.Duration
	logger  log.Logger
}

// WithTimeout sets the per-handler notification timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger used for registration and failure reporting.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(l)
	}
}

// binding is one invocable phase callback.
type binding[T any] struct {
	owner any
	name  string
	call  func(T) error
}

// Subscription is returned by RegisterFunc.
type Subscription struct {
	cancel func()
}

// Cancel removes the callback. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}

// Registry indexes phase handlers for a single observed subject.
type Registry[T any] struct {
	subject T
	timeout time.Duration
	logger  log.Logger

	mu       sync.Mutex
	bindings map[Phase][]*binding[T]
	handlers map[any]struct{}
}

// New creates a registry that passes subject to every handler.
func New[T any](subject T, opts ...Option) *Registry[T] {
	o := options{timeout: DefaultTimeout, logger: log.NoopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry[T]{
		subject:  subject,
		timeout:  o.timeout,
		logger:   o.logger,
		bindings: make(map[Phase][]*binding[T]),
		handlers: make(map[any]struct{}),
	}
}

// Timeout returns the per-handler notification timeout.
func (r *Registry[T]) Timeout() time.Duration {
	return r.timeout
}

// Register indexes every phase method of handler.
// A phase method with an unsupported signature rejects the whole handler.
// Registering the same handler again is a no-op.
func (r *Registry[T]) Register(handler any) error {
	if handler == nil {
		return ErrNilHandler
	}
	ht := reflect.TypeOf(handler)
	if !ht.Comparable() {
		return fmt.Errorf("%w: %s", ErrNotComparable, ht)
	}

	bound, err := bindHandler[T](handler)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[handler]; ok {
		return nil
	}
	r.handlers[handler] = struct{}{}
	for p, b := range bound {
		r.bindings[p] = append(slices.Clip(r.bindings[p]), b)
	}

	if len(bound) == 0 {
		r.logger.Debug("observer has no phase methods", log.String("handler", ht.String()))
	} else {
		r.logger.Debug("observer registered",
			log.String("handler", ht.String()),
			log.Int("phases", len(bound)),
		)
	}
	return nil
}

// RegisterFunc registers fn for a single phase.
func (r *Registry[T]) RegisterFunc(phase Phase, fn func(T) error) *Subscription {
	sub := &Subscription{}
	b := &binding[T]{owner: sub, name: "func", call: fn}

	r.mu.Lock()
	r.bindings[phase] = append(slices.Clip(r.bindings[phase]), b)
	r.mu.Unlock()

	sub.cancel = func() { r.remove(sub) }
	return sub
}

// Deregister removes every phase method of handler.
func (r *Registry[T]) Deregister(handler any) {
	if handler == nil || !reflect.TypeOf(handler).Comparable() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[handler]; !ok {
		return
	}
	delete(r.handlers, handler)
	r.removeLocked(handler)
}

func (r *Registry[T]) remove(owner any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(owner)
}

func (r *Registry[T]) removeLocked(owner any) {
	for p, list := range r.bindings {
		// Copy on write: in-flight notifications keep their snapshot.
		r.bindings[p] = slices.DeleteFunc(slices.Clone(list), func(b *binding[T]) bool {
			return b.owner == owner
		})
	}
}

// Count returns the number of callbacks registered for phase.
func (r *Registry[T]) Count(phase Phase) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings[phase])
}

func (r *Registry[T]) snapshot(phase Phase) []*binding[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bindings[phase]
}

// Notify invokes every handler registered for phase concurrently and waits
// until each one has returned, failed or timed out. Failures go to sink.
// Cancelling ctx abandons pending Starting handlers; it has no effect on
// the other phases.
func (r *Registry[T]) Notify(ctx context.Context, phase Phase, sink ErrorSink) {
	snapshot := r.snapshot(phase)
	if len(snapshot) == 0 {
		return
	}

	start := time.Now()
	var mu sync.Mutex
	report := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if sink != nil {
			sink(err)
		}
	}

	var wg conc.WaitGroup
	for _, b := range snapshot {
		wg.Go(func() {
			if err := r.invoke(ctx, phase, b); err != nil {
				report(err)
			}
		})
	}
	wg.Wait()

	notifyDuration.WithLabelValues(phase.String()).Observe(time.Since(start).Seconds())
}

// invoke runs one callback on its own goroutine, bounded by the timeout.
func (r *Registry[T]) invoke(ctx context.Context, phase Phase, b *binding[T]) error {
	notifications.WithLabelValues(phase.String()).Inc()

	done := make(chan error, 1)
	go func() {
		var err error
		var pc panics.Catcher
		pc.Try(func() { err = b.call(r.subject) })
		if rec := pc.Recovered(); rec != nil {
			cause, ok := rec.Value.(error)
			if !ok {
				cause = rec.AsError()
			}
			recordFailure(phase, kindPanic)
			err = &InvocationError{Handler: b.name, Phase: phase, Cause: cause}
		} else if err != nil {
			recordFailure(phase, kindError)
		}
		done <- err
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	// Only a start may be abandoned early; every other phase waits for the
	// handler or its timeout.
	var abandon <-chan struct{}
	if phase == Starting {
		abandon = ctx.Done()
	}

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		r.logger.Warn("observer failed",
			log.String("handler", b.name),
			log.Phase(phase.String()),
			log.Err(err),
		)
		return Normalize(err)
	case <-timer.C:
		recordFailure(phase, kindTimeout)
		err := &TimeoutError{Handler: b.name, Phase: phase, Timeout: r.timeout}
		r.logger.Warn("observer timed out",
			log.String("handler", b.name),
			log.Phase(phase.String()),
			log.Duration("timeout", r.timeout),
		)
		return err
	case <-abandon:
		recordFailure(phase, kindCanceled)
		return fmt.Errorf("observer: %s %s abandoned: %w", b.name, phase, ctx.Err())
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// bindHandler resolves the phase methods of handler into callbacks.
func bindHandler[T any](handler any) (map[Phase]*binding[T], error) {
	v := reflect.ValueOf(handler)
	typeName := v.Type().String()
	subjectType := reflect.TypeOf((*T)(nil)).Elem()

	bound := make(map[Phase]*binding[T])
	for _, p := range phases {
		m := v.MethodByName(p.String())
		if !m.IsValid() {
			continue
		}
		call, ok := adapt[T](m, subjectType)
		if !ok {
			return nil, &SignatureError{
				Handler:  typeName,
				Method:   p.String(),
				Expected: subjectType.String(),
				Got:      m.Type().String(),
			}
		}
		bound[p] = &binding[T]{owner: handler, name: typeName + "." + p.String(), call: call}
	}
	return bound, nil
}

// adapt converts a bound method value into a uniform callback.
func adapt[T any](m reflect.Value, subjectType reflect.Type) (func(T) error, bool) {
	switch fn := m.Interface().(type) {
	case func():
		return func(T) error { fn(); return nil }, true
	case func() error:
		return func(T) error { return fn() }, true
	case func(T):
		return func(s T) error { fn(s); return nil }, true
	case func(T) error:
		return fn, true
	}

	mt := m.Type()
	if mt.IsVariadic() || mt.NumIn() != 1 || !subjectType.AssignableTo(mt.In(0)) {
		return nil, false
	}
	switch {
	case mt.NumOut() == 0:
	case mt.NumOut() == 1 && mt.Out(0) == errorType:
	default:
		return nil, false
	}

	return func(s T) error {
		out := m.Call([]reflect.Value{reflect.ValueOf(&s).Elem()})
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}, true
}
