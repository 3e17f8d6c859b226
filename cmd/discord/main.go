// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/keshon/jukebox/internal/command/music"
	"github.com/keshon/jukebox/internal/config"
	"github.com/keshon/jukebox/internal/discord"
	"github.com/keshon/jukebox/internal/logging"
	"github.com/keshon/jukebox/internal/music/parsers/kkdai"
	"github.com/keshon/jukebox/internal/music/parsers/ytdlp"
	"github.com/keshon/jukebox/internal/music/parsers/ytplaylist"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/internal/music/sources/radio"
	"github.com/keshon/jukebox/internal/music/sources/soundcloud"
	"github.com/keshon/jukebox/internal/music/sources/web"
	"github.com/keshon/jukebox/internal/music/sources/youtube"
	"github.com/keshon/jukebox/internal/music/stream"
	"github.com/keshon/jukebox/internal/statusapi"
	"github.com/keshon/jukebox/internal/storage"
	v "github.com/keshon/jukebox/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", "")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFile)
	log.Info().Str("version", v.Version).Msgf("Starting %v bot...", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StoragePath).Msg("failed to open storage")
	}
	defer store.Close()

	presets := config.DefaultPresets()
	if cfg.PresetsPath != "" {
		if presets, err = config.LoadPresets(cfg.PresetsPath); err != nil {
			log.Fatal().Err(err).Str("path", cfg.PresetsPath).Msg("failed to load presets")
		}
	}

	ytdlpClient := ytdlp.New(cfg.YtdlpPath)
	resolver := source_resolver.New(
		youtube.New(ytdlpClient, kkdai.New(cfg.YouTubeProxy), ytplaylist.New()),
		soundcloud.New(ytdlpClient),
		radio.New(),
		web.New(ytdlpClient),
	)

	dg, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Discord session")
	}
	voice := discord.NewVoice(dg)

	sessions := player.NewRegistry(player.Config{
		Transcoder: stream.NewTranscoder(cfg.FfmpegPath, cfg.AudioBitrate),
		Voice:      voice,
		Refresher:  resolver,
		LocatorTTL: cfg.LocatorTTL,
		Logger:     logger,
	})

	bot := discord.New(dg, cfg, store, sessions)
	bot.Register(&music.MusicCommand{
		Voice:            voice,
		Resolver:         resolver,
		Sessions:         sessions,
		Presets:          presets,
		ResolveTimeout:   cfg.ResolveTimeout,
		OnSessionCreated: bot.Announce,
	})

	if cfg.StatusAddr != "" {
		go func() {
			if err := statusapi.New(sessions).Run(ctx, cfg.StatusAddr); err != nil {
				log.Error().Err(err).Msg("status server exited")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Discord bot error")
		}
		cancel()
	}

	sessions.Shutdown()
	log.Info().Msg("Discord bot exited cleanly")
}
