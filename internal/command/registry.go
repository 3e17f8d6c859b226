package command

import (
	"slices"
	"strings"
	"sync"
)

// Registry stores commands by name. Dispatch is left to adapters.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds c wrapped in mws.
func (r *Registry) Register(c Command, mws ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[c.Name()] = Apply(c, mws...)
}

func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[name]
	return c, ok
}

// All returns every command sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b Command) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return list
}
