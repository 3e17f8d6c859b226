package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/keshon/jukebox/internal/storage"
)

// commandLogger implements command.CommandLogger so middleware can log without importing discord.
type commandLogger struct {
	dg    *discordgo.Session
	store *storage.Storage
}

// LogCommand records a command execution to storage, resolving channel and guild names from state.
func (l *commandLogger) LogCommand(guildID, channelID, userID, username, command, param string) error {
	channelName := ""
	channel, err := l.dg.State.Channel(channelID)
	if err != nil {
		channel, err = l.dg.Channel(channelID)
	}
	if err != nil {
		log.Warn().Err(err).Str("channel_id", channelID).Msg("failed to fetch channel")
	} else {
		channelName = channel.Name
	}

	guildName := ""
	guild, err := l.dg.State.Guild(guildID)
	if err != nil {
		guild, err = l.dg.Guild(guildID)
	}
	if err != nil {
		log.Warn().Err(err).Str("guild_id", guildID).Msg("failed to fetch guild")
	} else {
		guildName = guild.Name
	}

	return l.store.AppendCommandToHistory(guildID, storage.CommandHistoryRecord{
		ChannelID:   channelID,
		ChannelName: channelName,
		GuildName:   guildName,
		UserID:      userID,
		Username:    username,
		Command:     command,
		Param:       param,
		Datetime:    time.Now(),
	})
}
