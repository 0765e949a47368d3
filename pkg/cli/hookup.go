package cli

import (
	"sync"

	"github.com/bft-labs/lifeline/pkg/lifecycle"
)

// Hookup is a lifecycle observer that registers the lifecycle with an
// Engine once it has started and removes it when it begins stopping.
type Hookup struct {
	engine   *Engine
	commands []Command

	mu        sync.Mutex
	instances map[string]*Instance
}

// NewHookup creates an observer exposing commands for every lifecycle it observes.
func NewHookup(engine *Engine, commands []Command) *Hookup {
	return &Hookup{
		engine:    engine,
		commands:  commands,
		instances: make(map[string]*Instance),
	}
}

// Started adds l to the engine.
func (h *Hookup) Started(l *lifecycle.Lifecycle) {
	inst := h.engine.StartInstance(l, h.commands)

	h.mu.Lock()
	h.instances[l.ID()] = inst
	h.mu.Unlock()
}

// Stopping removes l from the engine.
func (h *Hookup) Stopping(l *lifecycle.Lifecycle) {
	h.mu.Lock()
	inst := h.instances[l.ID()]
	delete(h.instances, l.ID())
	h.mu.Unlock()

	h.engine.StopInstance(inst)
}
