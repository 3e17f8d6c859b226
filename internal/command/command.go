// Package command holds the transport-agnostic command contract and the
// Discord extensions the bot adapter looks for.
package command

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Command is identity plus execution.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Invocation carries the input of one command run. Adapters put their own
// context into Data.
type Invocation struct {
	Args []string
	Data any
}

// DiscordMeta is optional metadata used by Discord middleware.
type DiscordMeta interface {
	Group() string
	Category() string
	UserPermissions() []int64
}

type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// Responder replies to interactions so commands never import the discord
// package.
type Responder interface {
	Respond(e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error
	Defer(e *discordgo.InteractionCreate) error
	Followup(e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error
	EmbedColor() int
}

// CommandLogger records executed commands.
type CommandLogger interface {
	LogCommand(guildID, channelID, userID, username, command, param string) error
}

// SlashInteractionContext is the Invocation.Data of a slash command.
type SlashInteractionContext struct {
	Session   *discordgo.Session
	Event     *discordgo.InteractionCreate
	Responder Responder
	Logger    CommandLogger
}

// User returns the invoking user, from the member in guilds or the user in DMs.
func (c *SlashInteractionContext) User() *discordgo.User {
	if c.Event.Member != nil && c.Event.Member.User != nil {
		return c.Event.Member.User
	}
	if c.Event.User != nil {
		return c.Event.User
	}
	return &discordgo.User{ID: "unknown", Username: "Unknown"}
}
