package middleware

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/keshon/jukebox/internal/command"
)

// WithCommandLogger logs every slash command run and records it through
// the context's CommandLogger.
func WithCommandLogger() command.Middleware {
	return func(c command.Command) command.Command {
		return command.Wrap(c, func(ctx context.Context, inv *command.Invocation) error {
			err := c.Run(ctx, inv)

			v, ok := inv.Data.(*command.SlashInteractionContext)
			if !ok {
				return err
			}

			e := v.Event
			user := v.User()
			param := describeOptions(e.ApplicationCommandData().Options)

			evt := log.Info()
			if err != nil {
				evt = log.Warn().Err(err)
			}
			evt.Str("guild_id", e.GuildID).Str("user_id", user.ID).Str("command", c.Name()).Str("param", param).Msg("command executed")

			if v.Logger != nil {
				if lerr := v.Logger.LogCommand(e.GuildID, e.ChannelID, user.ID, user.Username, c.Name(), param); lerr != nil {
					log.Warn().Err(lerr).Str("command", c.Name()).Msg("failed to record command")
				}
			}
			return err
		})
	}
}

// describeOptions flattens subcommands and their values, e.g. "play input=lofi".
func describeOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) string {
	var parts []string
	for _, o := range opts {
		switch o.Type {
		case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
			parts = append(parts, o.Name)
			if inner := describeOptions(o.Options); inner != "" {
				parts = append(parts, inner)
			}
		default:
			parts = append(parts, o.Name+"="+optionValue(o))
		}
	}
	return strings.Join(parts, " ")
}

func optionValue(o *discordgo.ApplicationCommandInteractionDataOption) string {
	if s, ok := o.Value.(string); ok {
		return s
	}
	return "?"
}
