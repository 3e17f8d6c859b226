package middleware

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
)

// WithGuildOnly rejects slash commands used outside a guild.
func WithGuildOnly() command.Middleware {
	return func(c command.Command) command.Command {
		return command.Wrap(c, func(ctx context.Context, inv *command.Invocation) error {
			v, ok := inv.Data.(*command.SlashInteractionContext)
			if !ok || v.Event.GuildID != "" {
				return c.Run(ctx, inv)
			}
			return v.Responder.Respond(v.Event, &discordgo.MessageEmbed{
				Description: "You must be in a guild to use this command.",
				Color:       v.Responder.EmbedColor(),
			}, true)
		})
	}
}
