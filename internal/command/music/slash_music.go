package music

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/config"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/internal/music/sources"
)

const (
	msgNotInVoice     = "You need to be in a voice channel to play music!"
	msgNoPermissions  = "I need the permissions to join and speak in your voice channel!"
	msgNothingToSkip  = "There is no song playing to skip!"
	msgStopped        = "Stopped the music and cleared the queue."
	msgStoppedEarly   = "Playback was stopped before the track could be queued."
	msgResolveTimeout = "Timed out while looking up the track."

	defaultResolveTimeout = 45 * time.Second
)

// Voice answers where a member is and whether the bot may follow.
type Voice interface {
	UserVoiceChannel(guildID, userID string) (string, error)
	CanJoinAndSpeak(channelID string) bool
}

type Resolver interface {
	Resolve(ctx context.Context, input, source, parser string) (*source_resolver.Result, error)
}

type MusicCommand struct {
	Voice          Voice
	Resolver       Resolver
	Sessions       *player.Registry
	Presets        config.Presets
	ResolveTimeout time.Duration

	// OnSessionCreated runs once for every session this command creates.
	OnSessionCreated func(*player.Session)
}

func (c *MusicCommand) Name() string             { return "music" }
func (c *MusicCommand) Description() string      { return "Control music playback" }
func (c *MusicCommand) Group() string            { return "music" }
func (c *MusicCommand) Category() string         { return "🎵 Music" }
func (c *MusicCommand) UserPermissions() []int64 { return []int64{} }

func (c *MusicCommand) SlashDefinition() *discordgo.ApplicationCommand {
	presetChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(c.Presets))
	for _, name := range c.Presets.Names() {
		if len(presetChoices) == 25 {
			break
		}
		presetChoices = append(presetChoices, &discordgo.ApplicationCommandOptionChoice{Name: name, Value: name})
	}

	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "play",
				Description: "Play a track or a playlist",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "input",
						Description: "Link or search query",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "source",
						Description: "Specify a source if search query is used",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "YouTube", Value: sources.SourceYouTube},
							{Name: "SoundCloud", Value: sources.SourceSoundCloud},
							{Name: "Radio", Value: sources.SourceRadio},
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "parser",
						Description: "Override autodetect parser",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "yt-dlp", Value: "ytdlp"},
							{Name: "kkdai/youtube", Value: "kkdai"},
						},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "skip",
				Description: "Skip to the next track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stop",
				Description: "Stop playback and clear queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "queue",
				Description: "Show the current track and what is next",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "preset",
				Description: "Play a random pick from a preset",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "name",
						Description: "Preset name",
						Required:    true,
						Choices:     presetChoices,
					},
				},
			},
		},
	}
}

func (c *MusicCommand) Run(ctx context.Context, inv *command.Invocation) error {
	v, ok := inv.Data.(*command.SlashInteractionContext)
	if !ok {
		return nil
	}

	e := v.Event
	opts := e.ApplicationCommandData().Options
	if len(opts) == 0 {
		return v.Responder.Respond(e, errorEmbed(v.Responder, "Missing subcommand."), true)
	}

	sub := opts[0]
	switch sub.Name {
	case "play":
		var input, source, parser string
		for _, opt := range sub.Options {
			switch opt.Name {
			case "input":
				input = opt.StringValue()
			case "source":
				source = opt.StringValue()
			case "parser":
				parser = opt.StringValue()
			}
		}
		return c.runPlay(v, input, source, parser)

	case "preset":
		var name string
		for _, opt := range sub.Options {
			if opt.Name == "name" {
				name = opt.StringValue()
			}
		}
		return c.runPreset(v, name)

	case "skip":
		return c.runSkip(v)

	case "stop":
		return c.runStop(v)

	case "queue":
		return c.runQueue(v)

	default:
		return v.Responder.Respond(e, errorEmbed(v.Responder, fmt.Sprintf("Unknown subcommand: %s", sub.Name)), true)
	}
}
