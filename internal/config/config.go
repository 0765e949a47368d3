package config

import (
	"fmt"
	"slices"
	"time"
)

// CLI modes.
const (
	CLIAuto = "auto"
	CLIOn   = "on"
	CLIOff  = "off"
)

// Config holds launcher configuration for lifeline.
type Config struct {
	Name    string
	WorkDir string
	Command []string

	NotifyTimeout   time.Duration
	ExecutorTimeout time.Duration
	PollInterval    time.Duration
	StopGrace       time.Duration
	ReadyTimeout    time.Duration
	ReadyAddr       string

	CLIMode     string
	LogLevel    string
	LogFormat   string
	MetricsAddr string
	StopMarker  string
	StatusFile  string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Name:            "application",
		NotifyTimeout:   30 * time.Second,
		ExecutorTimeout: 5 * time.Second,
		PollInterval:    100 * time.Millisecond,
		StopGrace:       10 * time.Second,
		ReadyTimeout:    30 * time.Second,
		CLIMode:         CLIAuto,
		LogLevel:        "info",
		LogFormat:       "console",
		StopMarker:      ".lifeline-stop",
		StatusFile:      "status.json",
	}
}

// Resolve fills settings left empty from the application config.
func (c *Config) Resolve(app AppConfig) {
	if c.WorkDir == "" {
		c.WorkDir = app.WorkDir
	}
	if c.ReadyAddr == "" && app.Port > 0 {
		c.ReadyAddr = app.Address()
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Command) == 0 {
		return fmt.Errorf("command is required")
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("notify timeout must be positive")
	}
	if c.ExecutorTimeout <= 0 {
		return fmt.Errorf("executor timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.StopGrace <= 0 {
		return fmt.Errorf("stop grace must be positive")
	}
	if !slices.Contains([]string{CLIAuto, CLIOn, CLIOff}, c.CLIMode) {
		return fmt.Errorf("cli mode must be one of auto, on, off: %q", c.CLIMode)
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list value if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = slices.Clone(value)
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}
