package launcher

import (
	"io"
	"time"

	"github.com/bft-labs/lifeline/internal/provider"
	"github.com/bft-labs/lifeline/pkg/log"
	"github.com/bft-labs/lifeline/pkg/shutdown"
)

// Config holds the launcher settings.
type Config struct {
	// Name is the display name of the hosted application.
	Name string

	// WorkDir is the application working directory. It also holds the
	// status file and the stop marker.
	WorkDir string

	// NotifyTimeout bounds each lifecycle observer. Default: 30s
	NotifyTimeout time.Duration

	// ExecutorTimeout bounds CLI executor shutdown. Default: 5s
	ExecutorTimeout time.Duration

	// PollInterval is the CLI read polling interval. Default: 100ms
	PollInterval time.Duration

	// CLI enables the interactive command engine.
	CLI bool

	// StatusFile is written on start and stop. Empty disables it.
	StatusFile string

	StopMarker       string
	DeleteOnShutdown bool

	// MetricsAddr serves /metrics when set, e.g. ":9090".
	MetricsAddr string
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = "application"
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 30 * time.Second
	}
	if c.ExecutorTimeout <= 0 {
		c.ExecutorTimeout = 5 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
}

// Option configures optional behavior of a Launcher.
type Option func(*options)

type options struct {
	logger    log.Logger
	plugins   []Plugin
	observers []any
	runtime   shutdown.Runtime
	input     io.Reader
	output    io.Writer
	commands  []provider.CommandProvider
	controls  []provider.LogControl
	childPID  func() int
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(l)
	}
}

// WithPlugin registers a plugin. Plugins are initialized in registration
// order and shut down in reverse order.
func WithPlugin(p Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, p)
	}
}

// WithObserver registers a lifecycle observer before Run.
func WithObserver(handler any) Option {
	return func(o *options) {
		o.observers = append(o.observers, handler)
	}
}

// WithRuntime replaces the signal-based shutdown hook facility.
func WithRuntime(rt shutdown.Runtime) Option {
	return func(o *options) {
		o.runtime = rt
	}
}

// WithConsole sets the CLI input and output. Defaults are stdin and stdout.
func WithConsole(in io.Reader, out io.Writer) Option {
	return func(o *options) {
		o.input = in
		o.output = out
	}
}

// WithCommandProvider adds CLI commands. Built-in commands are always present.
func WithCommandProvider(p provider.CommandProvider) Option {
	return func(o *options) {
		o.commands = append(o.commands, p)
	}
}

// WithLogControl adds a candidate for the debug-toggle command. The zerolog
// control is always present with rank 0.
// The highest ranked control wins.
func WithLogControl(c provider.LogControl) Option {
	return func(o *options) {
		o.controls = append(o.controls, c)
	}
}

// WithChildPID supplies the hosted process id for the status file.
func WithChildPID(fn func() int) Option {
	return func(o *options) {
		o.childPID = fn
	}
}
