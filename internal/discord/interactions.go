package discord

import (
	"github.com/bwmarrin/discordgo"
)

const EmbedColor = 0xb01e66

// responder implements command.Responder so commands can reply without importing
// the discord package directly (avoids import cycles).
type responder struct {
	dg *discordgo.Session
}

func (r responder) Respond(e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	if ephemeral {
		return RespondEmbedEphemeral(r.dg, e, embed)
	}
	return RespondEmbed(r.dg, e, embed)
}

func (r responder) Defer(e *discordgo.InteractionCreate) error {
	return RespondDeferred(r.dg, e)
}

func (r responder) Followup(e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	_, err := r.dg.FollowupMessageCreate(e.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  flags(ephemeral),
	})
	return err
}

func (responder) EmbedColor() int { return EmbedColor }

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// --- Interaction responses ---

// RespondEmbed sends a public embed response to an interaction.
func RespondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
}

// RespondEmbedEphemeral sends an ephemeral embed response to an interaction.
func RespondEmbedEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:  discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// RespondDeferred acknowledges an interaction; the answer follows as a followup.
func RespondDeferred(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// --- Channel messages (non-interaction) ---

// MessageEmbed sends an embed to a channel.
func MessageEmbed(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := s.ChannelMessageSendEmbed(channelID, embed)
	return err
}
