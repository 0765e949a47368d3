// Package shutdown multiplexes many cleanup operations onto a single
// process shutdown hook.
//
// Go has no runtime shutdown-hook facility, so hooks are modeled by the
// Runtime interface. SignalRuntime, the default, runs installed hooks when
// the process receives a termination signal or when Exit is called.
//
// A Coordinator installs its hook when the first operation is registered
// and removes it when the last one is deregistered:
//
//	coord := shutdown.New(shutdown.WithRuntime(rt), shutdown.WithLogger(logger))
//	op := shutdown.Func("remove workdir", func() error { return os.RemoveAll(dir) })
//	if err := coord.Register(op); err != nil {
//	    return err
//	}
//	defer coord.Deregister(op)
//
// When the hook runs, every operation registered at that moment is executed.
// A failing or panicking operation is logged and never prevents the others
// from running.
package shutdown
