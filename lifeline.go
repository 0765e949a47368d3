// Package lifeline runs an application under a managed lifecycle.
//
// Example usage:
//
//	l, err := lifeline.New(lifeline.Config{Name: "api", CLI: true}, start, stop)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := l.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// The sub-packages can be imported on their own: pkg/lifecycle for the
// state machine, pkg/observer for phase notifications, pkg/shutdown for the
// process shutdown hook coordinator and pkg/cli for the console engine.
package lifeline

import (
	"context"

	"github.com/bft-labs/lifeline/pkg/launcher"
	"github.com/bft-labs/lifeline/pkg/lifecycle"
	"github.com/bft-labs/lifeline/pkg/shutdown"
)

// Config holds the launcher settings.
type Config = launcher.Config

// Launcher hosts one application lifecycle.
type Launcher = launcher.Launcher

// Option configures optional behavior of a Launcher.
type Option = launcher.Option

// Plugin extends a Launcher.
type Plugin = launcher.Plugin

// PluginConfig is handed to every plugin on Initialize.
type PluginConfig = launcher.PluginConfig

// Lifecycle is the start/stop state machine.
type Lifecycle = lifecycle.Lifecycle

// Action starts or stops the hosted application.
type Action = lifecycle.Action

// State is a lifecycle state.
type State = lifecycle.State

// Lifecycle states.
const (
	StateHalted   = lifecycle.StateHalted
	StateStarting = lifecycle.StateStarting
	StateRunning  = lifecycle.StateRunning
	StateStopping = lifecycle.StateStopping
)

// New creates a launcher around start and stop.
func New(cfg Config, start, stop Action, opts ...Option) (*Launcher, error) {
	return launcher.New(cfg, start, stop, opts...)
}

// Run creates a launcher and runs it until the application halts.
func Run(ctx context.Context, cfg Config, start, stop Action, opts ...Option) error {
	l, err := launcher.New(cfg, start, stop, opts...)
	if err != nil {
		return err
	}
	return l.Run(ctx)
}

// NewLifecycle creates a standalone lifecycle without a launcher.
func NewLifecycle(start, stop Action, opts ...lifecycle.Option) *Lifecycle {
	return lifecycle.New(start, stop, opts...)
}

// ShutdownFunc adapts fn into a shutdown operation.
func ShutdownFunc(name string, fn func() error) *shutdown.FuncOperation {
	return shutdown.Func(name, fn)
}

// Version is the launcher module version.
const Version = launcher.Version
