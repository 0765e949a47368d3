package shutdown

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalRuntime_AddRemove(t *testing.T) {
	rt := NewSignalRuntime(WithExitFunc(func(int) {}))
	h := NewHook("h", nil)

	require.NoError(t, rt.AddHook(h))
	require.NoError(t, rt.AddHook(h))
	assert.Equal(t, 1, rt.Len())

	assert.True(t, rt.RemoveHook(h))
	assert.False(t, rt.RemoveHook(h))
	assert.Zero(t, rt.Len())
}

func TestSignalRuntime_ExitRunsHooksOnce(t *testing.T) {
	var code atomic.Int32
	code.Store(-1)
	rt := NewSignalRuntime(WithExitFunc(func(c int) { code.Store(int32(c)) }))

	var runs atomic.Int32
	for i := 0; i < 3; i++ {
		require.NoError(t, rt.AddHook(NewHook("h", func() { runs.Add(1) })))
	}
	require.NoError(t, rt.AddHook(NewHook("panics", func() { panic("boom") })))

	rt.Exit(3)
	rt.RunHooks()

	assert.Equal(t, int32(3), runs.Load())
	assert.Equal(t, int32(3), code.Load())

	assert.ErrorIs(t, rt.AddHook(NewHook("late", nil)), ErrShutdownInProgress)
	assert.False(t, rt.RemoveHook(NewHook("late", nil)))
}

func TestCoordinator_WithSignalRuntime(t *testing.T) {
	var exited atomic.Bool
	rt := NewSignalRuntime(WithExitFunc(func(int) { exited.Store(true) }))
	c := New(WithRuntime(rt))

	var ran atomic.Bool
	require.NoError(t, c.Register(Func("mark", func() error {
		ran.Store(true)
		return nil
	})))
	assert.Equal(t, 1, rt.Len())

	rt.Exit(0)

	assert.True(t, ran.Load())
	assert.True(t, exited.Load())
}
