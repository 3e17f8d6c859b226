package command

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Middleware wraps a command (logging, permission checks).
type Middleware func(Command) Command

// Apply applies middlewares in order; the last one is the outermost.
func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}

// Unwrappable is implemented by wrapped commands so adapters can reach the
// underlying command.
type Unwrappable interface {
	Command
	Unwrap() Command
}

// Wrapped runs RunFunc in place of the inner command's Run.
type Wrapped struct {
	Inner   Command
	RunFunc func(ctx context.Context, inv *Invocation) error
}

func (w *Wrapped) Name() string        { return w.Inner.Name() }
func (w *Wrapped) Description() string { return w.Inner.Description() }
func (w *Wrapped) Unwrap() Command     { return w.Inner }

func (w *Wrapped) Run(ctx context.Context, inv *Invocation) error {
	if w.RunFunc != nil {
		return w.RunFunc(ctx, inv)
	}
	return w.Inner.Run(ctx, inv)
}

// SlashDefinition passes the root definition through, so wrapped commands
// still register.
func (w *Wrapped) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := Root(w).(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

func Wrap(c Command, run func(ctx context.Context, inv *Invocation) error) Command {
	return &Wrapped{Inner: c, RunFunc: run}
}

// Root unwraps c until it reaches the command that was registered.
func Root(c Command) Command {
	for {
		u, ok := c.(Unwrappable)
		if !ok {
			return c
		}
		c = u.Unwrap()
	}
}
