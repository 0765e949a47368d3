package observer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subject struct{ name string }

type named interface{ Name() string }

func (s *subject) Name() string { return s.name }

// recorder records which phase methods were called.
type recorder struct {
	mu    sync.Mutex
	calls []string
	seen  *subject
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) Starting()                { r.add("starting") }
func (r *recorder) Started(s *subject)       { r.seen = s; r.add("started") }
func (r *recorder) Stopping() error          { r.add("stopping"); return nil }
func (r *recorder) Stopped(s *subject) error { r.add("stopped"); return nil }

type badParam struct{}

func (badParam) Started(n int) {}

type tooManyParams struct{}

func (*tooManyParams) Stopping(s *subject, extra string) {}

type badReturn struct{}

func (*badReturn) Stopped() (int, error) { return 0, nil }

// viaInterface accepts an interface the subject implements.
type viaInterface struct{ got string }

func (v *viaInterface) Started(n named) { v.got = n.Name() }

type failing struct{ err error }

func (f *failing) Stopping() error { return f.err }

type panicking struct{ value any }

func (p *panicking) Stopping() { panic(p.value) }

type sleeper struct{ d time.Duration }

func (s *sleeper) Started() { time.Sleep(s.d) }

type sliceHandler []int

func (sliceHandler) Started() {}

func collect() (ErrorSink, func() []error) {
	var mu sync.Mutex
	var errs []error
	return func(err error) {
			mu.Lock()
			defer mu.Unlock()
			errs = append(errs, err)
		}, func() []error {
			mu.Lock()
			defer mu.Unlock()
			return append([]error(nil), errs...)
		}
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{Starting, "Starting"},
		{Started, "Started"},
		{Stopping, "Stopping"},
		{Stopped, "Stopped"},
		{Phase(42), "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.phase.String())
	}
	assert.Len(t, Phases(), 4)
}

func TestRegister_IndexesAllPhaseMethods(t *testing.T) {
	s := &subject{name: "app"}
	reg := New(s)
	rec := &recorder{}

	require.NoError(t, reg.Register(rec))

	for _, p := range Phases() {
		assert.Equal(t, 1, reg.Count(p), "phase %s", p)
	}

	ctx := context.Background()
	for _, p := range Phases() {
		reg.Notify(ctx, p, nil)
	}
	assert.Equal(t, []string{"starting", "started", "stopping", "stopped"}, rec.Calls())
	assert.Same(t, s, rec.seen)
}

func TestRegister_RejectsBadSignatures(t *testing.T) {
	tests := []struct {
		name    string
		handler any
		method  string
	}{
		{"wrong parameter type", badParam{}, "Started"},
		{"too many parameters", &tooManyParams{}, "Stopping"},
		{"unsupported results", &badReturn{}, "Stopped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := New(&subject{})
			err := reg.Register(tt.handler)

			var sigErr *SignatureError
			require.ErrorAs(t, err, &sigErr)
			assert.Equal(t, tt.method, sigErr.Method)
			assert.Equal(t, "*observer.subject", sigErr.Expected)
			assert.Contains(t, err.Error(), tt.method)
			assert.Contains(t, err.Error(), "*observer.subject")

			for _, p := range Phases() {
				assert.Zero(t, reg.Count(p), "nothing registered for %s", p)
			}
		})
	}
}

func TestRegister_AssignableParameter(t *testing.T) {
	reg := New(&subject{name: "svc"})
	h := &viaInterface{}

	require.NoError(t, reg.Register(h))
	reg.Notify(context.Background(), Started, nil)

	assert.Equal(t, "svc", h.got)
}

func TestRegister_NilAndNonComparable(t *testing.T) {
	reg := New(&subject{})

	assert.ErrorIs(t, reg.Register(nil), ErrNilHandler)
	assert.ErrorIs(t, reg.Register(sliceHandler{1}), ErrNotComparable)
}

func TestRegister_Idempotent(t *testing.T) {
	reg := New(&subject{})
	rec := &recorder{}

	require.NoError(t, reg.Register(rec))
	require.NoError(t, reg.Register(rec))

	assert.Equal(t, 1, reg.Count(Started))
}

func TestDeregister_RemovesAllMethods(t *testing.T) {
	reg := New(&subject{})
	rec := &recorder{}
	other := &recorder{}
	require.NoError(t, reg.Register(rec))
	require.NoError(t, reg.Register(other))

	reg.Deregister(rec)

	for _, p := range Phases() {
		assert.Equal(t, 1, reg.Count(p))
	}
	reg.Notify(context.Background(), Starting, nil)
	assert.Empty(t, rec.Calls())
	assert.Equal(t, []string{"starting"}, other.Calls())

	// Unknown and nil handlers are ignored.
	reg.Deregister(&recorder{})
	reg.Deregister(nil)
}

func TestRegisterFunc_Cancel(t *testing.T) {
	reg := New(&subject{})
	var calls atomic.Int32

	sub := reg.RegisterFunc(Stopped, func(*subject) error {
		calls.Add(1)
		return nil
	})
	reg.Notify(context.Background(), Stopped, nil)
	sub.Cancel()
	sub.Cancel()
	reg.Notify(context.Background(), Stopped, nil)

	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, reg.Count(Stopped))
}

func TestNotify_ReportsErrorsAndPanics(t *testing.T) {
	reg := New(&subject{})
	bad := errors.New("bad")
	require.NoError(t, reg.Register(&failing{err: bad}))
	require.NoError(t, reg.Register(&panicking{value: bad}))
	require.NoError(t, reg.Register(&panicking{value: "boom"}))
	rec := &recorder{}
	require.NoError(t, reg.Register(rec))

	sink, errs := collect()
	reg.Notify(context.Background(), Stopping, sink)

	got := errs()
	require.Len(t, got, 3)
	var direct int
	for _, err := range got {
		if err == bad {
			direct++
		}
		var inv *InvocationError
		assert.False(t, errors.As(err, &inv), "invocation wrapper must be stripped: %v", err)
	}
	assert.Equal(t, 2, direct, "returned and panicked error both surface as the cause")
	assert.Equal(t, []string{"stopping"}, rec.Calls(), "healthy handler still runs")
}

func TestNotify_TimeoutDoesNotBlockOthers(t *testing.T) {
	reg := New(&subject{}, WithTimeout(50*time.Millisecond))
	require.NoError(t, reg.Register(&sleeper{d: 2 * time.Second}))
	var fast atomic.Bool
	reg.RegisterFunc(Started, func(*subject) error {
		fast.Store(true)
		return nil
	})

	sink, errs := collect()
	start := time.Now()
	reg.Notify(context.Background(), Started, sink)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second)
	assert.True(t, fast.Load())
	got := errs()
	require.Len(t, got, 1)
	assert.True(t, IsTimeout(got[0]))
	var te *TimeoutError
	require.ErrorAs(t, got[0], &te)
	assert.Equal(t, Started, te.Phase)
}

func TestNotify_IsABarrier(t *testing.T) {
	reg := New(&subject{}, WithTimeout(time.Second))
	var done atomic.Int32
	for i := 0; i < 5; i++ {
		reg.RegisterFunc(Starting, func(*subject) error {
			time.Sleep(time.Duration(10*(i+1)) * time.Millisecond)
			done.Add(1)
			return nil
		})
	}

	reg.Notify(context.Background(), Starting, nil)

	assert.Equal(t, int32(5), done.Load())
}

func TestNotify_RunsConcurrently(t *testing.T) {
	reg := New(&subject{}, WithTimeout(time.Second))
	release := make(chan struct{})
	var arrived sync.WaitGroup
	arrived.Add(2)
	for i := 0; i < 2; i++ {
		reg.RegisterFunc(Stopped, func(*subject) error {
			arrived.Done()
			<-release
			return nil
		})
	}

	go func() {
		// Both handlers must be in flight at once for this to unblock.
		arrived.Wait()
		close(release)
	}()

	sink, errs := collect()
	reg.Notify(context.Background(), Stopped, sink)
	assert.Empty(t, errs())
}

type slowStarter struct{ d time.Duration }

func (s *slowStarter) Starting() { time.Sleep(s.d) }

func TestNotify_ContextCancelAbandonsStarting(t *testing.T) {
	reg := New(&subject{}, WithTimeout(time.Minute))
	require.NoError(t, reg.Register(&slowStarter{d: time.Second}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	sink, errs := collect()
	reg.Notify(ctx, Starting, sink)

	got := errs()
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], context.DeadlineExceeded)
}

func TestNotify_ContextCancelKeepsBarrier(t *testing.T) {
	for _, phase := range []Phase{Started, Stopping, Stopped} {
		t.Run(phase.String(), func(t *testing.T) {
			reg := New(&subject{}, WithTimeout(time.Minute))
			var finished atomic.Bool
			reg.RegisterFunc(phase, func(*subject) error {
				time.Sleep(100 * time.Millisecond)
				finished.Store(true)
				return nil
			})

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			sink, errs := collect()
			reg.Notify(ctx, phase, sink)

			assert.True(t, finished.Load(), "Notify returned before the handler finished")
			assert.Empty(t, errs())
		})
	}
}

func TestNotify_RegisterDuringNotification(t *testing.T) {
	reg := New(&subject{}, WithTimeout(time.Second))
	reg.RegisterFunc(Started, func(*subject) error {
		reg.RegisterFunc(Started, func(*subject) error { return nil })
		return nil
	})

	reg.Notify(context.Background(), Started, nil)

	assert.Equal(t, 2, reg.Count(Started))
}

func TestNotify_RecordsMetrics(t *testing.T) {
	reg := New(&subject{})
	reg.RegisterFunc(Stopping, func(*subject) error { return fmt.Errorf("nope") })

	before := testutil.ToFloat64(failures.WithLabelValues("Stopping", kindError))
	reg.Notify(context.Background(), Stopping, nil)
	after := testutil.ToFloat64(failures.WithLabelValues("Stopping", kindError))

	assert.Equal(t, before+1, after)
}

func TestNormalize(t *testing.T) {
	cause := errors.New("root")
	assert.Same(t, cause, Normalize(&InvocationError{Cause: cause}))
	assert.Same(t, cause, Normalize(cause))

	wrapped := fmt.Errorf("outer: %w", cause)
	assert.Equal(t, wrapped, Normalize(wrapped))

	// Only a top-level layer is peeled.
	buried := fmt.Errorf("outer: %w", &InvocationError{Cause: cause})
	assert.Same(t, buried, Normalize(buried))

	inner := &InvocationError{Handler: "inner", Cause: cause}
	assert.Same(t, inner, Normalize(&InvocationError{Handler: "outer", Cause: inner}))
}

func TestRegisterDeregister_Concurrent(t *testing.T) {
	reg := New(&subject{})
	rec := &recorder{}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = reg.Register(rec)
		}()
		go func() {
			defer wg.Done()
			reg.Deregister(rec)
		}()
	}
	wg.Wait()

	reg.mu.Lock()
	_, registered := reg.handlers[rec]
	reg.mu.Unlock()

	want := 0
	if registered {
		want = 1
	}
	for _, p := range Phases() {
		assert.Equal(t, want, reg.Count(p), "phase %s", p)
	}
}
