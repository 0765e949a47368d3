// Package commands provides the built-in CLI commands.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/lifeline/internal/provider"
	"github.com/bft-labs/lifeline/pkg/cli"
)

// Help lists every command of every running instance.
type Help struct{}

func (Help) Code() string                  { return "h" }
func (Help) Name() string                  { return "Help" }
func (Help) Description(cli.Target) string { return "show available commands" }
func (Help) IsHelp() bool                  { return true }
func (Help) PrintOnStartup() bool          { return true }

func (Help) Execute(_ context.Context, _ cli.Target, console cli.Console) error {
	console.PrintCommands()
	return nil
}

// Stop stops the target instance.
type Stop struct{}

func (Stop) Code() string         { return "s" }
func (Stop) Name() string         { return "Stop" }
func (Stop) IsHelp() bool         { return true }
func (Stop) PrintOnStartup() bool { return true }

func (Stop) Description(t cli.Target) string {
	return "stop " + t.Name()
}

func (Stop) Execute(ctx context.Context, t cli.Target, console cli.Console) error {
	fmt.Fprintf(console, "Stopping %s...\n", t.Name())
	// Stopping tears down this command's session, which cancels ctx.
	if err := t.Stop(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("stop %s: %w", t.Name(), err)
	}
	return nil
}

// Status prints the state and uptime of the target instance.
type Status struct{}

func (Status) Code() string         { return "i" }
func (Status) Name() string         { return "Status" }
func (Status) IsHelp() bool         { return true }
func (Status) PrintOnStartup() bool { return false }

func (Status) Description(t cli.Target) string {
	return "show status of " + t.Name()
}

func (Status) Execute(_ context.Context, t cli.Target, console cli.Console) error {
	_, err := fmt.Fprintf(console, "%s %s: %s, uptime %s\n",
		t.Name(), t.ID(), t.State(), t.Uptime().Truncate(time.Second))
	return err
}

// Debug toggles debug logging.
type Debug struct {
	Control provider.LogControl
}

func (Debug) Code() string                  { return "d" }
func (Debug) Name() string                  { return "Debug" }
func (Debug) Description(cli.Target) string { return "toggle debug logging" }
func (Debug) IsHelp() bool                  { return true }
func (Debug) PrintOnStartup() bool          { return false }

func (d Debug) Execute(_ context.Context, _ cli.Target, console cli.Console) error {
	state := "off"
	if d.Control.ToggleDebug() {
		state = "on"
	}
	_, err := fmt.Fprintf(console, "Debug logging %s (level %s)\n", state, d.Control.Level())
	return err
}

// Provider contributes the built-in commands.
type Provider struct {
	control provider.LogControl
}

// NewProvider creates the built-in command provider. The debug command is
// only offered when control is not nil.
func NewProvider(control provider.LogControl) *Provider {
	return &Provider{control: control}
}

func (*Provider) Name() string { return "builtin" }
func (*Provider) Rank() int    { return 0 }

// Commands returns h, s, i and, with a log control, d.
func (p *Provider) Commands() []cli.Command {
	cmds := []cli.Command{Help{}, Stop{}, Status{}}
	if p.control != nil {
		cmds = append(cmds, Debug{Control: p.control})
	}
	return cmds
}
