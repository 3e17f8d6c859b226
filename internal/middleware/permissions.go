package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/config"
)

var PermissionNames = map[int64]string{
	discordgo.PermissionAdministrator:        "Administrator",
	discordgo.PermissionManageChannels:       "Manage Channels",
	discordgo.PermissionManageGuild:          "Manage Server",
	discordgo.PermissionViewChannel:          "View Channel",
	discordgo.PermissionSendMessages:         "Send Messages",
	discordgo.PermissionEmbedLinks:           "Embed Links",
	discordgo.PermissionVoiceConnect:         "Connect to Voice Channel",
	discordgo.PermissionVoiceSpeak:           "Speak",
	discordgo.PermissionVoiceMuteMembers:     "Mute Members",
	discordgo.PermissionVoiceDeafenMembers:   "Deafen Members",
	discordgo.PermissionVoiceMoveMembers:     "Move Members",
	discordgo.PermissionVoicePrioritySpeaker: "Priority Speaker",
}

// WithUserPermissionCheck requires the member to hold at least one of the
// command's UserPermissions. Administrators and the developer always pass.
func WithUserPermissionCheck(cfg *config.Config) command.Middleware {
	return func(c command.Command) command.Command {
		return command.Wrap(c, func(ctx context.Context, inv *command.Invocation) error {
			v, ok := inv.Data.(*command.SlashInteractionContext)
			if !ok || v.Event.Member == nil || v.Event.Member.User == nil {
				return c.Run(ctx, inv)
			}

			meta, ok := command.Root(c).(command.DiscordMeta)
			if !ok || len(meta.UserPermissions()) == 0 {
				return c.Run(ctx, inv)
			}

			perms := v.Event.Member.Permissions
			if perms&discordgo.PermissionAdministrator != 0 || config.IsDeveloper(cfg, v.Event.Member.User.ID) {
				return c.Run(ctx, inv)
			}

			required := meta.UserPermissions()
			for _, p := range required {
				if perms&p != 0 {
					return c.Run(ctx, inv)
				}
			}

			return v.Responder.Respond(v.Event, &discordgo.MessageEmbed{
				Title:       "Missing permissions",
				Description: fmt.Sprintf("You need one of: %s", permissionList(required)),
				Color:       v.Responder.EmbedColor(),
			}, true)
		})
	}
}

func permissionList(perms []int64) string {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		if name, ok := PermissionNames[p]; ok {
			names = append(names, name)
		} else {
			names = append(names, fmt.Sprintf("0x%x", p))
		}
	}
	return strings.Join(names, ", ")
}
