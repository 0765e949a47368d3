// Package config loads launcher settings and the hosted application config.
//
// Launcher settings are layered with the precedence flags > LIFELINE_*
// environment > TOML file (~/.lifeline/config.toml) > defaults. Flags the
// user set explicitly are passed as a changed map so lower layers skip them.
//
// The application config is a JSON object in LIFELINE_APP_CONFIG. It is
// read once before the lifecycle is built and is never reloaded.
package config
