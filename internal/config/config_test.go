package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.NotifyTimeout != 30*time.Second {
		t.Errorf("NotifyTimeout = %v, want 30s", cfg.NotifyTimeout)
	}
	if cfg.ExecutorTimeout != 5*time.Second {
		t.Errorf("ExecutorTimeout = %v, want 5s", cfg.ExecutorTimeout)
	}
	if cfg.PollInterval != 100*time.Millisecond {
		t.Errorf("PollInterval = %v, want 100ms", cfg.PollInterval)
	}
	if cfg.CLIMode != CLIAuto {
		t.Errorf("CLIMode = %v, want auto", cfg.CLIMode)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		c := DefaultConfig()
		c.Command = []string{"./server"}
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid minimal config", func(*Config) {}, false},
		{"missing command", func(c *Config) { c.Command = nil }, true},
		{"invalid notify timeout", func(c *Config) { c.NotifyTimeout = 0 }, true},
		{"invalid executor timeout", func(c *Config) { c.ExecutorTimeout = -1 }, true},
		{"invalid poll interval", func(c *Config) { c.PollInterval = 0 }, true},
		{"invalid stop grace", func(c *Config) { c.StopGrace = 0 }, true},
		{"unknown cli mode", func(c *Config) { c.CLIMode = "sometimes" }, true},
		{"cli off", func(c *Config) { c.CLIMode = CLIOff }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Resolve(t *testing.T) {
	app := AppConfig{Host: "0.0.0.0", Port: 8080, WorkDir: "/srv/app"}

	c1 := DefaultConfig()
	c1.Resolve(app)
	if c1.WorkDir != "/srv/app" {
		t.Errorf("WorkDir = %v, want /srv/app", c1.WorkDir)
	}
	if c1.ReadyAddr != "0.0.0.0:8080" {
		t.Errorf("ReadyAddr = %v, want 0.0.0.0:8080", c1.ReadyAddr)
	}

	// Explicit settings win over the application config.
	c2 := DefaultConfig()
	c2.WorkDir = "/override"
	c2.ReadyAddr = "localhost:9000"
	c2.Resolve(app)
	if c2.WorkDir != "/override" || c2.ReadyAddr != "localhost:9000" {
		t.Errorf("Resolve() overwrote explicit settings: %+v", c2)
	}

	// No port means no readiness probe.
	c3 := DefaultConfig()
	c3.Resolve(AppConfig{})
	if c3.ReadyAddr != "" {
		t.Errorf("ReadyAddr = %v, want empty", c3.ReadyAddr)
	}
}
