package provider

import "github.com/bft-labs/lifeline/pkg/log"

// ZerologControl exposes the zerolog global level as a LogControl.
type ZerologControl struct {
	levels log.LevelControl
}

// NewZerologControl creates the built-in log control.
func NewZerologControl() *ZerologControl {
	return &ZerologControl{}
}

func (*ZerologControl) Name() string { return "zerolog" }
func (*ZerologControl) Rank() int    { return 0 }

func (z *ZerologControl) SetLevel(name string) error { return z.levels.SetLevel(name) }
func (z *ZerologControl) ToggleDebug() bool          { return z.levels.ToggleDebug() }
func (z *ZerologControl) Level() string              { return z.levels.Level() }
