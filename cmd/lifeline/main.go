package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bft-labs/lifeline/internal/config"
	"github.com/bft-labs/lifeline/internal/process"
	"github.com/bft-labs/lifeline/pkg/launcher"
	"github.com/bft-labs/lifeline/pkg/log"
	"github.com/bft-labs/lifeline/plugins/stopwatcher"
	"github.com/bft-labs/lifeline/plugins/workdircleanup"
)

const helpDescription = `
Run an application under a managed lifecycle.

lifeline starts the application, waits until it is ready, and keeps it
running until you stop it from the console, create the stop marker file,
or send a termination signal. The application's own exit also stops it.

Highlights:
  - Interactive console commands (type h for help) when attached to a terminal.
  - Graceful stop: SIGTERM, a grace period, then SIGKILL.
  - Status file, Prometheus metrics and optional working directory cleanup.
  - Application settings come from the LIFELINE_APP_CONFIG JSON variable.
`

var exampleUsage = strings.TrimSpace(`
  lifeline run -- ./server --port 8080
  lifeline run --name api --workdir /srv/api --ready-addr localhost:8080 -- ./api
  LIFELINE_APP_CONFIG='{"port":8080,"deleteOnShutdown":true}' lifeline run -- ./api
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	root := &cobra.Command{
		Use:     "lifeline",
		Short:   "Run an application under a managed lifecycle",
		Long:    strings.TrimSpace(helpDescription),
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
	}
	root.AddCommand(newRunCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lifeline:", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:          "run [flags] -- command [args...]",
		Short:        "Start the application and keep it running",
		Example:      exampleUsage,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if err := loadConfig(&cfg, cfgPath, changed); err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Command = args
			}

			app, err := config.LoadAppConfig()
			if err != nil {
				return err
			}
			cfg.Resolve(app)
			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cmd.Context(), cfg, app)
		},
	}

	f := cmd.Flags()
	// Everything after the command name belongs to the application.
	f.SetInterspersed(false)
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.lifeline/config.toml)")
	f.StringVar(&cfg.Name, "name", cfg.Name, "display name of the application")
	f.StringVar(&cfg.WorkDir, "workdir", cfg.WorkDir, "working directory (defaults to the app config workDir)")
	f.StringVar(&cfg.ReadyAddr, "ready-addr", cfg.ReadyAddr, "host:port probed until the application accepts connections")
	f.DurationVar(&cfg.ReadyTimeout, "ready-timeout", cfg.ReadyTimeout, "maximum time to wait for readiness")
	f.DurationVar(&cfg.StopGrace, "stop-grace", cfg.StopGrace, "time between SIGTERM and SIGKILL")
	f.DurationVar(&cfg.NotifyTimeout, "notify-timeout", cfg.NotifyTimeout, "per-observer notification timeout")
	f.DurationVar(&cfg.ExecutorTimeout, "executor-timeout", cfg.ExecutorTimeout, "console command executor stop timeout")
	f.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "console input polling interval")
	f.StringVar(&cfg.CLIMode, "cli", cfg.CLIMode, "interactive console: auto, on or off")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: trace, debug, info, warn, error")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	f.StringVar(&cfg.StopMarker, "stop-marker", cfg.StopMarker, "file name in the working directory that stops the application")
	f.StringVar(&cfg.StatusFile, "status-file", cfg.StatusFile, "status file name in the working directory (empty disables)")
	return cmd
}

// loadConfig applies the config file and LIFELINE_* variables under the
// flags that were set explicitly.
func loadConfig(cfg *config.Config, path string, changed map[string]bool) error {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if path != "" && config.FileExists(path) {
		fc, err := config.LoadFileConfig(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	return config.ApplyEnvConfig(cfg, changed)
}

func run(ctx context.Context, cfg config.Config, app config.AppConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// The adapter passes everything; the global level set here does the
	// filtering so the console debug toggle can change it.
	var levels log.LevelControl
	if err := levels.SetLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger := log.NewZerologAdapterFromConfig(log.Config{Level: "trace", Format: cfg.LogFormat})
	zl := logger.Logger()
	zl.Info().Interface("config", cfg).Interface("app", maskAppConfig(app)).Msg("configuration")

	var (
		l       *launcher.Launcher
		exitMu  sync.Mutex
		exitErr error
	)
	runner := process.NewRunner(process.Config{
		Command:      cfg.Command,
		Dir:          cfg.WorkDir,
		Env:          app.Environ(),
		ReadyAddr:    cfg.ReadyAddr,
		ReadyTimeout: cfg.ReadyTimeout,
		StopGrace:    cfg.StopGrace,
	},
		process.WithLogger(logger),
		process.WithExitHandler(func(err error) {
			exitMu.Lock()
			exitErr = err
			exitMu.Unlock()
			go func() { _ = l.Stop(context.Background()) }()
		}),
	)

	l, err := launcher.New(launcher.Config{
		Name:             cfg.Name,
		WorkDir:          cfg.WorkDir,
		NotifyTimeout:    cfg.NotifyTimeout,
		ExecutorTimeout:  cfg.ExecutorTimeout,
		PollInterval:     cfg.PollInterval,
		CLI:              cliEnabled(cfg.CLIMode, os.Stdin),
		StatusFile:       cfg.StatusFile,
		StopMarker:       cfg.StopMarker,
		DeleteOnShutdown: app.DeleteOnShutdown,
		MetricsAddr:      cfg.MetricsAddr,
	}, runner.Start, runner.Stop,
		launcher.WithLogger(logger),
		launcher.WithChildPID(runner.PID),
		stopwatcher.WithDefaultStopWatcher(),
		workdircleanup.WithWorkDirCleanup(),
	)
	if err != nil {
		return fmt.Errorf("create launcher: %w", err)
	}

	if err := l.Run(ctx); err != nil {
		return err
	}

	exitMu.Lock()
	defer exitMu.Unlock()
	var ee interface{ ExitCode() int }
	if errors.As(exitErr, &ee) && ee.ExitCode() != 0 {
		return fmt.Errorf("application exited: %w", exitErr)
	}
	return nil
}

// cliEnabled resolves the console mode. Auto enables it only when stdin is
// a terminal.
func cliEnabled(mode string, stdin *os.File) bool {
	switch mode {
	case config.CLIOn:
		return true
	case config.CLIOff:
		return false
	default:
		return stdin != nil && term.IsTerminal(int(stdin.Fd()))
	}
}

func maskAppConfig(app config.AppConfig) config.AppConfig {
	if app.KeyStore != nil && app.KeyStore.Password != "" {
		ks := *app.KeyStore
		ks.Password = "*****"
		app.KeyStore = &ks
	}
	return app
}
