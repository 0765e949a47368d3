package log

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LevelControl switches the process-wide zerolog level.
// The zero value starts from whatever level is currently global.
type LevelControl struct {
	mu       sync.Mutex
	previous zerolog.Level
	debug    bool
}

// SetLevel sets the global level by name. Unknown names are rejected.
func (c *LevelControl) SetLevel(name string) error {
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	zerolog.SetGlobalLevel(level)
	c.debug = level <= zerolog.DebugLevel
	if c.debug {
		c.previous = zerolog.InfoLevel
	}
	return nil
}

// ToggleDebug flips between debug and the level active before debug was enabled.
// It returns true when debug logging is now on.
func (c *LevelControl) ToggleDebug() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.debug {
		zerolog.SetGlobalLevel(c.previous)
		c.debug = false
		return false
	}
	c.previous = zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	c.debug = true
	return true
}

// Level returns the current global level name.
func (c *LevelControl) Level() string {
	return zerolog.GlobalLevel().String()
}
