package shutdown

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	mu      sync.Mutex
	hooks   []*Hook
	adds    int
	removes int
	addErr  error
}

func (f *fakeRuntime) AddHook(h *Hook) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.adds++
	f.hooks = append(f.hooks, h)
	return nil
}

func (f *fakeRuntime) RemoveHook(h *Hook) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes++
	for i, installed := range f.hooks {
		if installed == h {
			f.hooks = append(f.hooks[:i], f.hooks[i+1:]...)
			return true
		}
	}
	return false
}

func (f *fakeRuntime) fire() {
	f.mu.Lock()
	hooks := append([]*Hook(nil), f.hooks...)
	f.mu.Unlock()
	for _, h := range hooks {
		h.Run()
	}
}

func (f *fakeRuntime) counts() (adds, removes, installed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adds, f.removes, len(f.hooks)
}

type valueOp struct{ ids []int }

func (valueOp) Run() error { return nil }

func TestCoordinator_ReferenceCountsHook(t *testing.T) {
	rt := &fakeRuntime{}
	c := New(WithRuntime(rt))
	a := Func("a", func() error { return nil })
	b := Func("b", func() error { return nil })

	require.NoError(t, c.Register(a))
	require.NoError(t, c.Register(b))
	adds, removes, installed := rt.counts()
	assert.Equal(t, 1, adds, "two operations share one hook")
	assert.Equal(t, 0, removes)
	assert.Equal(t, 1, installed)
	assert.Equal(t, 2, c.Len())

	c.Deregister(a)
	assert.True(t, c.Installed())
	_, removes, _ = rt.counts()
	assert.Equal(t, 0, removes)

	c.Deregister(b)
	assert.False(t, c.Installed())
	_, removes, installed = rt.counts()
	assert.Equal(t, 1, removes)
	assert.Equal(t, 0, installed)

	// A later registration installs a fresh hook.
	require.NoError(t, c.Register(a))
	adds, _, installed = rt.counts()
	assert.Equal(t, 2, adds)
	assert.Equal(t, 1, installed)
}

func TestCoordinator_RegisterIsIdempotent(t *testing.T) {
	rt := &fakeRuntime{}
	c := New(WithRuntime(rt))
	op := Func("op", nil)

	require.NoError(t, c.Register(op))
	require.NoError(t, c.Register(op))

	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Contains(op))
	c.Deregister(op)
	assert.False(t, c.Installed())
	assert.False(t, c.Contains(op))

	// Unknown operations are ignored.
	c.Deregister(Func("other", nil))
	c.Deregister(nil)
}

func TestCoordinator_RejectsInvalidOperations(t *testing.T) {
	c := New(WithRuntime(&fakeRuntime{}))

	assert.ErrorIs(t, c.Register(nil), ErrNilOperation)
	assert.ErrorIs(t, c.Register(valueOp{ids: []int{1}}), ErrNotComparable)
	assert.False(t, c.Contains(valueOp{ids: []int{1}}))
	assert.Zero(t, c.Len())
	assert.False(t, c.Installed())
}

func TestCoordinator_InstallFailure(t *testing.T) {
	rt := &fakeRuntime{addErr: ErrShutdownInProgress}
	c := New(WithRuntime(rt))

	err := c.Register(Func("late", nil))

	assert.ErrorIs(t, err, ErrShutdownInProgress)
	assert.Zero(t, c.Len())
	assert.False(t, c.Installed())
}

func TestCoordinator_HookRunsEveryOperation(t *testing.T) {
	rt := &fakeRuntime{}
	c := New(WithRuntime(rt))

	var order []string
	record := func(name string, err error) *FuncOperation {
		return Func(name, func() error {
			order = append(order, name)
			return err
		})
	}
	require.NoError(t, c.Register(record("first", nil)))
	require.NoError(t, c.Register(record("failing", errors.New("disk full"))))
	require.NoError(t, c.Register(Func("panicking", func() error {
		order = append(order, "panicking")
		panic("boom")
	})))
	require.NoError(t, c.Register(record("last", nil)))

	before := testutil.ToFloat64(executed.WithLabelValues(resultPanic))
	rt.fire()

	assert.Equal(t, []string{"first", "failing", "panicking", "last"}, order)
	assert.Equal(t, before+1, testutil.ToFloat64(executed.WithLabelValues(resultPanic)))
}

func TestCoordinator_SelfDeregistrationDefersHookRemoval(t *testing.T) {
	rt := &fakeRuntime{}
	c := New(WithRuntime(rt))

	var op *FuncOperation
	ran := 0
	var installedDuring bool
	var removesDuring int
	op = Func("self", func() error {
		ran++
		c.Deregister(op)
		installedDuring = c.Installed()
		_, removesDuring, _ = rt.counts()
		return nil
	})
	require.NoError(t, c.Register(op))

	rt.fire()

	assert.Equal(t, 1, ran)
	assert.True(t, installedDuring, "hook kept while it is executing")
	assert.Zero(t, removesDuring, "hook must not be removed from inside its own execution")

	assert.Zero(t, c.Len())
	assert.False(t, c.Installed(), "hook released once execution finished")
	_, removes, installed := rt.counts()
	assert.Equal(t, 1, removes)
	assert.Zero(t, installed)
}

func TestCoordinator_DeregistrationFromOtherGoroutineDuringHook(t *testing.T) {
	rt := &fakeRuntime{}
	c := New(WithRuntime(rt))

	entered := make(chan struct{})
	release := make(chan struct{})
	op := Func("slow", func() error {
		close(entered)
		<-release
		return nil
	})
	require.NoError(t, c.Register(op))

	fired := make(chan struct{})
	go func() {
		rt.fire()
		close(fired)
	}()

	<-entered
	c.Deregister(op)
	assert.Zero(t, c.Len())
	assert.True(t, c.Installed())
	close(release)
	<-fired

	assert.False(t, c.Installed(), "no hook left installed without operations")
	_, _, installed := rt.counts()
	assert.Zero(t, installed)
}

func TestCoordinator_HookKeptWhenRegisteredDuringExecution(t *testing.T) {
	rt := &fakeRuntime{}
	c := New(WithRuntime(rt))

	late := Func("late", func() error { return nil })
	var first *FuncOperation
	first = Func("first", func() error {
		c.Deregister(first)
		return c.Register(late)
	})
	require.NoError(t, c.Register(first))

	rt.fire()

	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Installed())
}

func TestCoordinator_SnapshotIsolatesConcurrentDeregistration(t *testing.T) {
	rt := &fakeRuntime{}
	c := New(WithRuntime(rt))

	var ranSecond bool
	second := Func("second", func() error {
		ranSecond = true
		return nil
	})
	first := Func("first", func() error {
		c.Deregister(second)
		return nil
	})
	require.NoError(t, c.Register(first))
	require.NoError(t, c.Register(second))

	rt.fire()

	assert.True(t, ranSecond, "operations in the snapshot still run")
	assert.Equal(t, 1, c.Len())
}

func TestCoordinator_ConcurrentRegistration(t *testing.T) {
	rt := &fakeRuntime{}
	c := New(WithRuntime(rt))

	ops := make([]*FuncOperation, 32)
	for i := range ops {
		ops[i] = Func("op", nil)
	}

	var wg sync.WaitGroup
	for _, op := range ops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Register(op)
		}()
	}
	wg.Wait()

	adds, _, _ := rt.counts()
	assert.Equal(t, 1, adds)
	assert.Equal(t, len(ops), c.Len())

	for _, op := range ops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Deregister(op)
		}()
	}
	wg.Wait()

	_, removes, installed := rt.counts()
	assert.Equal(t, 1, removes)
	assert.Zero(t, installed)
}
