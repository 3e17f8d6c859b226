package music

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/internal/music/sources/youtube"
)

const (
	msgQueueEmpty = "The queue is empty."
	queuePreview  = 10
)

func errorEmbed(r command.Responder, msg string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: msg,
		Color:       r.EmbedColor(),
	}
}

func infoEmbed(r command.Responder, msg string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: msg,
		Color:       r.EmbedColor(),
	}
}

func trackLink(t sources.Track) string {
	if t.URL == "" {
		return t.DisplayTitle()
	}
	return fmt.Sprintf("[%s](%s)", t.DisplayTitle(), t.URL)
}

func addedEmbed(r command.Responder, res *source_resolver.Result) *discordgo.MessageEmbed {
	if res.Kind == source_resolver.QueryPlaylist {
		title := res.PlaylistTitle
		if title == "" {
			title = "Playlist"
		}
		return &discordgo.MessageEmbed{
			Title:       "🎶 Playlist added to queue",
			Description: fmt.Sprintf("**%s**\n%d tracks", title, len(res.Tracks)),
			Color:       r.EmbedColor(),
		}
	}

	t := res.Tracks[0]
	embed := &discordgo.MessageEmbed{
		Title:       "🎶 Added to queue",
		Description: trackLink(t),
		Color:       r.EmbedColor(),
	}
	if t.Source == sources.SourceYouTube {
		if thumb := youtube.ThumbnailURL(youtube.VideoID(t.URL)); thumb != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumb}
		}
	}
	return embed
}

func queueEmbed(r command.Responder, cur sources.Track, playing bool, queue []sources.Track) *discordgo.MessageEmbed {
	if !playing && len(queue) == 0 {
		return infoEmbed(r, msgQueueEmpty)
	}

	var b strings.Builder
	if playing {
		fmt.Fprintf(&b, "**Now playing:** %s\n", trackLink(cur))
	}
	if len(queue) > 0 {
		b.WriteString("\n**Up next:**\n")
		for i, t := range queue {
			if i == queuePreview {
				fmt.Fprintf(&b, "...and %d more\n", len(queue)-queuePreview)
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, trackLink(t))
		}
	}

	return &discordgo.MessageEmbed{
		Title:       "🎵 Queue",
		Description: strings.TrimSpace(b.String()),
		Color:       r.EmbedColor(),
	}
}
