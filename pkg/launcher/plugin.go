package launcher

import (
	"context"

	"github.com/bft-labs/lifeline/pkg/lifecycle"
	"github.com/bft-labs/lifeline/pkg/log"
	"github.com/bft-labs/lifeline/pkg/shutdown"
)

// Plugin extends a Launcher.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize is called before the lifecycle starts.
	// An error aborts Run.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called after the lifecycle has halted.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to every plugin on Initialize.
type PluginConfig struct {
	Name             string
	WorkDir          string
	StopMarker       string
	DeleteOnShutdown bool

	Lifecycle *lifecycle.Lifecycle
	Shutdown  *shutdown.Coordinator
	Logger    log.Logger
}
