package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Name:          "api",
				WorkDir:       "/srv/api",
				NotifyTimeout: "5s",
				StopGrace:     "1m",
				CLIMode:       "on",
				StatusFile:    "api.json",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Name:          "api",
				WorkDir:       "/srv/api",
				NotifyTimeout: 5 * time.Second,
				StopGrace:     time.Minute,
				CLIMode:       "on",
				StatusFile:    "api.json",
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Name:    "config-name",
				WorkDir: "/config/work",
			},
			changed: map[string]bool{"workdir": true},
			initial: Config{
				Name:    "flag-name",
				WorkDir: "/flag/work",
			},
			expected: Config{
				Name:    "config-name",
				WorkDir: "/flag/work", // unchanged because flag was set
			},
			wantErr: false,
		},
		{
			name: "returns error for invalid duration",
			fileConfig: FileConfig{
				PollInterval: "soon",
			},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyFileConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyFileConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr {
				assertConfig(t, cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
name = "api"
workdir = "/srv/api"
command = ["./server", "--port", "8080"]
notify_timeout = "10s"
cli = "off"
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Name != "api" {
		t.Errorf("Name = %v, want api", fc.Name)
	}
	if fc.WorkDir != "/srv/api" {
		t.Errorf("WorkDir = %v, want /srv/api", fc.WorkDir)
	}
	if len(fc.Command) != 3 || fc.Command[2] != "8080" {
		t.Errorf("Command = %v, want [./server --port 8080]", fc.Command)
	}
	if fc.NotifyTimeout != "10s" {
		t.Errorf("NotifyTimeout = %v, want 10s", fc.NotifyTimeout)
	}
	if fc.CLIMode != "off" {
		t.Errorf("CLIMode = %v, want off", fc.CLIMode)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
name = "api"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".lifeline") {
		t.Errorf("DefaultConfigPath() = %v, should contain .lifeline", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
