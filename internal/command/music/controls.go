package music

import (
	"errors"
	"fmt"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/music/player"
)

func (c *MusicCommand) runSkip(v *command.SlashInteractionContext) error {
	e, r := v.Event, v.Responder
	if err := r.Defer(e); err != nil {
		return fmt.Errorf("failed to send deferred response: %w", err)
	}

	sess, ok := c.Sessions.Get(e.GuildID)
	if !ok {
		return r.Followup(e, errorEmbed(r, msgNothingToSkip), true)
	}

	skipped, err := sess.Skip()
	switch {
	case errors.Is(err, player.ErrNothingToSkip), errors.Is(err, player.ErrTerminated):
		return r.Followup(e, errorEmbed(r, msgNothingToSkip), true)
	case err != nil:
		return r.Followup(e, errorEmbed(r, err.Error()), true)
	}

	return r.Followup(e, infoEmbed(r, "⏭️ Skipped "+trackLink(skipped)), false)
}

func (c *MusicCommand) runStop(v *command.SlashInteractionContext) error {
	e, r := v.Event, v.Responder
	if err := r.Defer(e); err != nil {
		return fmt.Errorf("failed to send deferred response: %w", err)
	}

	// Removing an absent session is fine: the reply is the same either way.
	c.Sessions.Remove(e.GuildID)
	return r.Followup(e, infoEmbed(r, msgStopped), false)
}

func (c *MusicCommand) runQueue(v *command.SlashInteractionContext) error {
	e, r := v.Event, v.Responder

	sess, ok := c.Sessions.Get(e.GuildID)
	if !ok {
		return r.Respond(e, infoEmbed(r, msgQueueEmpty), true)
	}
	cur, playing := sess.Current()
	return r.Respond(e, queueEmbed(r, cur, playing, sess.Queue()), false)
}
