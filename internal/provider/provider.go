// Package provider discovers pluggable collaborators: CLI command sets and
// log-level controls.
//
// Providers are added to a Registry during start-up. The first lookup
// resolves the list once: providers are ordered by descending rank and only
// the highest ranked provider of each name is kept. The result is cached
// for the life of the registry.
package provider

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"github.com/bft-labs/lifeline/pkg/cli"
)

// ErrResolved is returned by Add once the registry has been resolved.
var ErrResolved = errors.New("provider: registry already resolved")

// Provider is implemented by every discoverable collaborator.
type Provider interface {
	// Name identifies the provider. Providers sharing a name replace each other.
	Name() string
	// Rank orders providers; higher ranks come first.
	Rank() int
}

// CommandProvider contributes CLI commands.
type CommandProvider interface {
	Provider
	Commands() []cli.Command
}

// LogControl adjusts logging at runtime.
type LogControl interface {
	Provider
	SetLevel(name string) error
	ToggleDebug() bool
	Level() string
}

// Registry holds providers of one kind.
type Registry[P Provider] struct {
	mu         sync.Mutex
	candidates []P
	resolved   []P
	done       bool
}

// NewRegistry creates an empty registry.
func NewRegistry[P Provider](providers ...P) *Registry[P] {
	return &Registry[P]{candidates: slices.Clone(providers)}
}

// Add registers p. It fails once the registry has been resolved.
func (r *Registry[P]) Add(p P) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return ErrResolved
	}
	r.candidates = append(r.candidates, p)
	return nil
}

// Providers returns the resolved providers, highest rank first.
func (r *Registry[P]) Providers() []P {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.done {
		r.resolved = resolve(r.candidates)
		r.candidates = nil
		r.done = true
	}
	return slices.Clone(r.resolved)
}

// Best returns the highest ranked provider.
func (r *Registry[P]) Best() (P, bool) {
	ps := r.Providers()
	if len(ps) == 0 {
		var zero P
		return zero, false
	}
	return ps[0], true
}

func resolve[P Provider](candidates []P) []P {
	sorted := slices.Clone(candidates)
	// Stable keeps registration order among equal ranks.
	slices.SortStableFunc(sorted, func(a, b P) int {
		return cmp.Compare(b.Rank(), a.Rank())
	})

	seen := make(map[string]bool, len(sorted))
	out := sorted[:0]
	for _, p := range sorted {
		if seen[p.Name()] {
			continue
		}
		seen[p.Name()] = true
		out = append(out, p)
	}
	return out
}

// Commands flattens the commands of every resolved provider. When two
// providers offer the same code, the higher ranked one wins.
func Commands(r *Registry[CommandProvider]) []cli.Command {
	var out []cli.Command
	codes := make(map[string]bool)
	for _, p := range r.Providers() {
		for _, c := range p.Commands() {
			if codes[c.Code()] {
				continue
			}
			codes[c.Code()] = true
			out = append(out, c)
		}
	}
	return out
}
