package config

import "os"

// ApplyEnvConfig applies configuration from environment variables (LIFELINE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", os.Getenv("LIFELINE_NAME"), &cfg.Name)
	s.setString("workdir", os.Getenv("LIFELINE_WORKDIR"), &cfg.WorkDir)
	s.setString("ready-addr", os.Getenv("LIFELINE_READY_ADDR"), &cfg.ReadyAddr)
	s.setString("cli", os.Getenv("LIFELINE_CLI"), &cfg.CLIMode)
	s.setString("log-level", os.Getenv("LIFELINE_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("LIFELINE_LOG_FORMAT"), &cfg.LogFormat)
	s.setString("metrics-addr", os.Getenv("LIFELINE_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("stop-marker", os.Getenv("LIFELINE_STOP_MARKER"), &cfg.StopMarker)
	s.setString("status-file", os.Getenv("LIFELINE_STATUS_FILE"), &cfg.StatusFile)

	if err := s.setDuration("notify-timeout", os.Getenv("LIFELINE_NOTIFY_TIMEOUT"), &cfg.NotifyTimeout); err != nil {
		return err
	}
	if err := s.setDuration("executor-timeout", os.Getenv("LIFELINE_EXECUTOR_TIMEOUT"), &cfg.ExecutorTimeout); err != nil {
		return err
	}
	if err := s.setDuration("poll-interval", os.Getenv("LIFELINE_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("stop-grace", os.Getenv("LIFELINE_STOP_GRACE"), &cfg.StopGrace); err != nil {
		return err
	}
	if err := s.setDuration("ready-timeout", os.Getenv("LIFELINE_READY_TIMEOUT"), &cfg.ReadyTimeout); err != nil {
		return err
	}

	return nil
}
