package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/music/player"
)

const opusSendTimeout = 5 * time.Second

var ErrNotInVoice = errors.New("user not in any voice channel")

// Voice adapts a gateway session to the player's voice transport and answers
// the voice checks the music command makes.
type Voice struct {
	dg *discordgo.Session
}

func NewVoice(dg *discordgo.Session) *Voice {
	return &Voice{dg: dg}
}

// JoinOrGet reuses the guild's connection when it already sits in channelID.
func (v *Voice) JoinOrGet(guildID, channelID string) (player.VoiceConn, error) {
	v.dg.RLock()
	vc, ok := v.dg.VoiceConnections[guildID]
	v.dg.RUnlock()
	if ok && vc.ChannelID == channelID {
		return &voiceConn{vc: vc}, nil
	}

	vc, err := v.dg.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	return &voiceConn{vc: vc}, nil
}

// UserVoiceChannel finds the voice channel a member is connected to.
func (v *Voice) UserVoiceChannel(guildID, userID string) (string, error) {
	guild, err := v.dg.State.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("error retrieving guild: %w", err)
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, nil
		}
	}
	return "", ErrNotInVoice
}

// CanJoinAndSpeak reports whether the bot holds Connect and Speak in a channel.
func (v *Voice) CanJoinAndSpeak(channelID string) bool {
	perms, err := v.dg.UserChannelPermissions(v.dg.State.User.ID, channelID)
	if err != nil {
		return false
	}
	return hasVoicePermissions(perms)
}

func hasVoicePermissions(perms int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	need := int64(discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak)
	return perms&need == need
}

type voiceConn struct {
	vc *discordgo.VoiceConnection
}

// Submit pumps opus packets until the stream ends or ctx is cancelled.
func (c *voiceConn) Submit(ctx context.Context, s player.AudioStream) error {
	if err := c.vc.Speaking(true); err != nil {
		return fmt.Errorf("failed to set speaking: %w", err)
	}
	defer c.vc.Speaking(false)

	return pump(ctx, s, c.vc.OpusSend)
}

func (c *voiceConn) Destroy() error {
	return c.vc.Disconnect()
}

func pump(ctx context.Context, s player.AudioStream, out chan<- []byte) error {
	for {
		packet, err := s.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- packet:
		case <-time.After(opusSendTimeout):
			return errors.New("voice connection stopped accepting audio")
		}
	}
}
