package cli

import (
	"context"
	"io"
	"time"

	"github.com/bft-labs/lifeline/pkg/lifecycle"
)

// Target is the running instance a command acts on.
// *lifecycle.Lifecycle implements it.
type Target interface {
	ID() string
	Name() string
	State() lifecycle.State
	Uptime() time.Duration
	Stop(ctx context.Context) error
}

// Console is the output side of the session, available to executing commands.
type Console interface {
	io.Writer
	// PrintHelp lists help commands of every instance.
	PrintHelp()
	// PrintCommands lists every command of every instance.
	PrintCommands()
}

// Command is an operator action bound to a short code.
type Command interface {
	Code() string
	Name() string
	Description(target Target) string
	Execute(ctx context.Context, target Target, console Console) error
	// IsHelp marks commands listed when an unknown code is entered.
	IsHelp() bool
	// PrintOnStartup marks commands announced when an instance starts.
	PrintOnStartup() bool
}
