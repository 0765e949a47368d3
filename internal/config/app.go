package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
)

// AppConfigEnv names the environment variable carrying the application config.
const AppConfigEnv = "LIFELINE_APP_CONFIG"

// KeyStore describes the TLS key store handed to the application.
type KeyStore struct {
	Path     string `json:"path"`
	Password string `json:"password"`
	Type     string `json:"type"`
}

// AppConfig is the read-only configuration of the hosted application.
type AppConfig struct {
	Host             string    `json:"host"`
	Port             int       `json:"port"`
	WorkDir          string    `json:"workDir"`
	DeleteOnShutdown bool      `json:"deleteOnShutdown"`
	KeyStore         *KeyStore `json:"keyStore,omitempty"`
}

// LoadAppConfig reads AppConfigEnv. An unset variable yields the zero config.
func LoadAppConfig() (AppConfig, error) {
	return ParseAppConfig(os.Getenv(AppConfigEnv))
}

// ParseAppConfig decodes a JSON application config.
func ParseAppConfig(raw string) (AppConfig, error) {
	var app AppConfig
	if raw == "" {
		return app, nil
	}
	if err := json.Unmarshal([]byte(raw), &app); err != nil {
		return AppConfig{}, fmt.Errorf("parse %s: %w", AppConfigEnv, err)
	}
	if app.Port < 0 || app.Port > 65535 {
		return AppConfig{}, fmt.Errorf("parse %s: port out of range: %d", AppConfigEnv, app.Port)
	}
	return app, nil
}

// Address returns host:port, defaulting the host to localhost.
func (a AppConfig) Address() string {
	host := a.Host
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(a.Port))
}

// Environ returns the variables exported to the hosted process.
func (a AppConfig) Environ() []string {
	var env []string
	if a.Host != "" {
		env = append(env, "LIFELINE_HOST="+a.Host)
	}
	if a.Port > 0 {
		env = append(env, "LIFELINE_PORT="+strconv.Itoa(a.Port))
	}
	if a.KeyStore != nil {
		env = append(env,
			"LIFELINE_KEYSTORE_PATH="+a.KeyStore.Path,
			"LIFELINE_KEYSTORE_PASSWORD="+a.KeyStore.Password,
			"LIFELINE_KEYSTORE_TYPE="+a.KeyStore.Type,
		)
	}
	return env
}
