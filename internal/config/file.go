package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Name            string   `toml:"name"`
	WorkDir         string   `toml:"workdir"`
	Command         []string `toml:"command"`
	NotifyTimeout   string   `toml:"notify_timeout"`
	ExecutorTimeout string   `toml:"executor_timeout"`
	PollInterval    string   `toml:"poll_interval"`
	StopGrace       string   `toml:"stop_grace"`
	ReadyTimeout    string   `toml:"ready_timeout"`
	ReadyAddr       string   `toml:"ready_addr"`
	CLIMode         string   `toml:"cli"`
	LogLevel        string   `toml:"log_level"`
	LogFormat       string   `toml:"log_format"`
	MetricsAddr     string   `toml:"metrics_addr"`
	StopMarker      string   `toml:"stop_marker"`
	StatusFile      string   `toml:"status_file"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.lifeline/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".lifeline", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", fc.Name, &cfg.Name)
	s.setString("workdir", fc.WorkDir, &cfg.WorkDir)
	s.setStrings("command", fc.Command, &cfg.Command)
	s.setString("ready-addr", fc.ReadyAddr, &cfg.ReadyAddr)
	s.setString("cli", fc.CLIMode, &cfg.CLIMode)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("stop-marker", fc.StopMarker, &cfg.StopMarker)
	s.setString("status-file", fc.StatusFile, &cfg.StatusFile)

	if err := s.setDuration("notify-timeout", fc.NotifyTimeout, &cfg.NotifyTimeout); err != nil {
		return err
	}
	if err := s.setDuration("executor-timeout", fc.ExecutorTimeout, &cfg.ExecutorTimeout); err != nil {
		return err
	}
	if err := s.setDuration("poll-interval", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("stop-grace", fc.StopGrace, &cfg.StopGrace); err != nil {
		return err
	}
	if err := s.setDuration("ready-timeout", fc.ReadyTimeout, &cfg.ReadyTimeout); err != nil {
		return err
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
