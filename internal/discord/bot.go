package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/config"
	"github.com/keshon/jukebox/internal/middleware"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/storage"
	"github.com/keshon/jukebox/pkg/retrylimit"
)

// Bot is a Discord bot
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	storage  *storage.Storage
	commands *command.Registry
	sessions *player.Registry
	limiter  *retrylimit.AdaptiveLimiter

	responder command.Responder
	cmdLogger command.CommandLogger

	ctx context.Context
}

// NewSession creates the gateway session the voice adapter and the bot share.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	return dg, nil
}

func New(dg *discordgo.Session, cfg *config.Config, store *storage.Storage, sessions *player.Registry) *Bot {
	return &Bot{
		dg:        dg,
		cfg:       cfg,
		storage:   store,
		commands:  command.NewRegistry(),
		sessions:  sessions,
		limiter:   retrylimit.NewAdaptiveLimiter(5, 1, 40, 1, 0.5),
		responder: responder{dg: dg},
		cmdLogger: &commandLogger{dg: dg, store: store},
		ctx:       context.Background(),
	}
}

// Register adds c behind the standard middleware chain.
func (b *Bot) Register(c command.Command) {
	b.commands.Register(c,
		middleware.WithGuildOnly(),
		middleware.WithUserPermissionCheck(b.cfg),
		middleware.WithCommandLogger(),
	)
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onVoiceStateUpdate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	log.Info().Msg("❎ Shutdown signal received. Cleaning up...")
	b.sessions.Shutdown()
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		if b.leaveIfBlacklisted(s, g.ID) {
			continue
		}
		go b.syncGuild(g.ID)
	}

	log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("✅ Discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log.Info().Str("guild_id", g.ID).Str("guild", g.Name).Msg("guild available")
	if b.leaveIfBlacklisted(s, g.ID) {
		return
	}
	go b.syncGuild(g.ID)
}

func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID string) bool {
	if !b.cfg.IsGuildBlacklisted(guildID) {
		return false
	}
	log.Info().Str("guild_id", guildID).Msg("leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		log.Error().Err(err).Str("guild_id", guildID).Msg("failed to leave guild")
	}
	return true
}

func (b *Bot) syncGuild(guildID string) {
	if !b.cfg.InitSlashCommands {
		log.Debug().Str("guild_id", guildID).Msg("registering slash commands skipped")
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, 2*time.Minute)
	defer cancel()
	if err := b.registerCommands(ctx, guildID); err != nil {
		log.Error().Err(err).Str("guild_id", guildID).Msg("failed to register slash commands")
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.CommandType != 0 && data.CommandType != discordgo.ChatApplicationCommand {
		return
	}

	cmd, ok := b.commands.Get(data.Name)
	if !ok {
		log.Warn().Str("command", data.Name).Msg("unknown command")
		return
	}

	inv := &command.Invocation{Data: &command.SlashInteractionContext{
		Session:   s,
		Event:     i,
		Responder: b.responder,
		Logger:    b.cmdLogger,
	}}
	if err := cmd.Run(b.ctx, inv); err != nil {
		log.Error().Err(err).Str("command", data.Name).Str("guild_id", i.GuildID).Msg("error running slash command")
		embed := &discordgo.MessageEmbed{Description: fmt.Sprintf("Error running command: %v", err), Color: EmbedColor}
		if rerr := b.responder.Respond(i, embed, true); rerr != nil {
			_ = b.responder.Followup(i, embed, true)
		}
	}
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	sess, ok := b.sessions.Get(v.GuildID)
	if !ok || s.State.User == nil {
		return
	}
	if !sess.Connected() {
		// a late echo of an earlier session's disconnect must not end one
		// that has not joined yet
		return
	}

	var states []*discordgo.VoiceState
	if g, err := s.State.Guild(v.GuildID); err == nil {
		states = g.VoiceStates
	}

	if shouldLeave(s.State.User.ID, v.VoiceState, states, b.isBot) {
		log.Info().Str("guild_id", v.GuildID).Str("session_id", sess.ID).Msg("voice channel empty or bot disconnected, ending session")
		b.sessions.RemoveSession(sess)
	}
}

func (b *Bot) isBot(guildID, userID string) bool {
	m, err := b.dg.State.Member(guildID, userID)
	return err == nil && m.User != nil && m.User.Bot
}

// shouldLeave reports whether the bot's session must end after update: the
// bot itself left voice, or its channel holds no humans anymore.
func shouldLeave(botID string, update *discordgo.VoiceState, states []*discordgo.VoiceState, isBot func(guildID, userID string) bool) bool {
	if update == nil {
		return false
	}
	if update.UserID == botID {
		return update.ChannelID == ""
	}

	botChannel := ""
	for _, vs := range states {
		if vs.UserID == botID {
			botChannel = vs.ChannelID
			break
		}
	}
	if botChannel == "" {
		return false
	}

	for _, vs := range states {
		if vs.ChannelID != botChannel || vs.UserID == botID {
			continue
		}
		if vs.Member != nil && vs.Member.User != nil && vs.Member.User.Bot {
			continue
		}
		if isBot != nil && isBot(update.GuildID, vs.UserID) {
			continue
		}
		return false
	}
	return true
}
