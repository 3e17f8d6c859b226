package discord

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/internal/music/sources/youtube"
	"github.com/keshon/jukebox/internal/storage"
)

// Announce follows a session's events until it stops, posting them to the
// session's text channel.
func (b *Bot) Announce(s *player.Session) {
	go func() {
		for ev := range s.Events() {
			b.handleEvent(s, ev)
		}
	}()
}

func (b *Bot) handleEvent(s *player.Session, ev player.Event) {
	for _, m := range ev.Missed {
		b.handleEvent(s, m)
	}

	l := log.With().Str("guild_id", s.GuildID).Str("session_id", s.ID).Str("event", string(ev.Type)).Logger()

	switch ev.Type {
	case player.EventNowPlaying:
		if err := b.storage.AppendTrackToHistory(s.GuildID, storage.TrackHistoryRecord{
			Title:    ev.Track.DisplayTitle(),
			URL:      ev.Track.URL,
			Source:   ev.Track.Source,
			PlayedAt: time.Now(),
		}); err != nil {
			l.Warn().Err(err).Msg("failed to record track history")
		}

	case player.EventTrackFailed:
		l.Warn().Err(ev.Err).Str("track", ev.Track.DisplayTitle()).Msg("track failed")
		if errors.Is(ev.Err, player.ErrVoiceUnavailable) {
			b.sessions.RemoveSession(s)
		}
	}

	embed := eventEmbed(ev)
	if embed == nil {
		return
	}
	if err := MessageEmbed(b.dg, s.TextChannelID, embed); err != nil {
		l.Warn().Err(err).Msg("failed to announce event")
	}
}

// eventEmbed renders an event for the text channel, or nil when it is not announced.
func eventEmbed(ev player.Event) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Color: EmbedColor}

	switch ev.Type {
	case player.EventNowPlaying:
		embed.Title = ev.Type.StringEmoji() + " Now playing"
		embed.Description = trackLink(ev.Track)
		if ev.Track.Source == sources.SourceYouTube {
			if thumb := youtube.ThumbnailURL(youtube.VideoID(ev.Track.URL)); thumb != "" {
				embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumb}
			}
		}

	case player.EventTrackFailed:
		msg := sources.UserMessage(ev.Err)
		if errors.Is(ev.Err, player.ErrVoiceUnavailable) {
			msg = "Could not connect to the voice channel. The queue was cleared."
		}
		embed.Title = ev.Type.StringEmoji() + " Could not play track"
		embed.Description = fmt.Sprintf("%s\n%s", trackLink(ev.Track), msg)

	case player.EventQueueEmpty:
		embed.Description = ev.Type.StringEmoji() + " Queue finished."

	default:
		return nil
	}
	return embed
}

func trackLink(t sources.Track) string {
	if t.URL == "" {
		return t.DisplayTitle()
	}
	return fmt.Sprintf("[%s](%s)", t.DisplayTitle(), t.URL)
}
