package music

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/internal/music/sources"
)

// runPlay checks preconditions, acknowledges the interaction and resolves
// the input in the background. Nothing is mutated when a check fails.
func (c *MusicCommand) runPlay(v *command.SlashInteractionContext, input, source, parser string) error {
	e, r := v.Event, v.Responder

	if strings.TrimSpace(input) == "" {
		return r.Respond(e, errorEmbed(r, "Input is required."), true)
	}

	channelID, err := c.Voice.UserVoiceChannel(e.GuildID, v.User().ID)
	if err != nil || channelID == "" {
		return r.Respond(e, errorEmbed(r, msgNotInVoice), true)
	}
	if !c.Voice.CanJoinAndSpeak(channelID) {
		return r.Respond(e, errorEmbed(r, msgNoPermissions), true)
	}

	if err := r.Defer(e); err != nil {
		return fmt.Errorf("failed to send deferred response: %w", err)
	}

	sess := c.acquire(e.GuildID, channelID, e.ChannelID)
	go c.resolveAndEnqueue(v, sess, input, source, parser)
	return nil
}

func (c *MusicCommand) runPreset(v *command.SlashInteractionContext, name string) error {
	input, err := c.Presets.Pick(name)
	if err != nil {
		return v.Responder.Respond(v.Event, errorEmbed(v.Responder, fmt.Sprintf("Unknown preset `%s`.", name)), true)
	}
	return c.runPlay(v, input, "", "")
}

func (c *MusicCommand) acquire(guildID, voiceChannelID, textChannelID string) *player.Session {
	sess, created := c.Sessions.GetOrCreate(guildID, voiceChannelID, textChannelID)
	if created && c.OnSessionCreated != nil {
		c.OnSessionCreated(sess)
	}
	return sess
}

// resolveAndEnqueue runs under the session context, so stopping the
// session abandons the lookup.
func (c *MusicCommand) resolveAndEnqueue(v *command.SlashInteractionContext, sess *player.Session, input, source, parser string) {
	timeout := c.ResolveTimeout
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	ctx, cancel := context.WithTimeout(sess.Context(), timeout)
	defer cancel()

	res, err := c.Resolver.Resolve(ctx, input, source, parser)
	if err == nil && (res == nil || len(res.Tracks) == 0) {
		err = sources.ErrVideoNotFound
	}
	if err != nil {
		log.Warn().Err(err).Str("guild_id", sess.GuildID).Str("input", input).Msg("failed to resolve input")
		followup(v, errorEmbed(v.Responder, resolveErrorMessage(err)), true)
		return
	}

	if err := sess.Enqueue(res.Tracks...); err != nil {
		followup(v, errorEmbed(v.Responder, msgStoppedEarly), true)
		return
	}

	log.Info().Str("guild_id", sess.GuildID).Str("kind", res.Kind.String()).Int("tracks", len(res.Tracks)).Msg("tracks queued")
	followup(v, addedEmbed(v.Responder, res), false)
}

func resolveErrorMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return msgStoppedEarly
	case errors.Is(err, context.DeadlineExceeded):
		return msgResolveTimeout
	case errors.Is(err, source_resolver.ErrUnknownSource):
		return "Unknown source."
	case errors.Is(err, source_resolver.ErrNoSource):
		return "No source can play this input."
	default:
		return sources.UserMessage(err)
	}
}

// followup is best effort: a failed reply is logged and dropped.
func followup(v *command.SlashInteractionContext, embed *discordgo.MessageEmbed, ephemeral bool) {
	if err := v.Responder.Followup(v.Event, embed, ephemeral); err != nil {
		log.Warn().Err(err).Str("guild_id", v.Event.GuildID).Msg("failed to send followup")
	}
}
