package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DiscordToken          string        `env:"DISCORD_TOKEN,required,notEmpty"`
	StoragePath           string        `env:"STORAGE_PATH" envDefault:"datastore.json"`
	DiscordGuildBlacklist []string      `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	InitSlashCommands     bool          `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	DeveloperID           string        `env:"DEVELOPER_ID"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile               string        `env:"LOG_FILE"`
	YtdlpPath             string        `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	FfmpegPath            string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	AudioBitrate          int           `env:"AUDIO_BITRATE" envDefault:"96000"`
	YouTubeProxy          string        `env:"YOUTUBE_PROXY"`
	LocatorTTL            time.Duration `env:"LOCATOR_TTL" envDefault:"3h"`
	ResolveTimeout        time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"45s"`
	PresetsPath           string        `env:"PRESETS_PATH"`
	StatusAddr            string        `env:"STATUS_ADDR"`
}

// Load reads .env when present and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, falling back to system environment variables")
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.AudioBitrate <= 0 {
		return nil, fmt.Errorf("AUDIO_BITRATE must be positive, got %d", cfg.AudioBitrate)
	}
	return &cfg, nil
}

func IsDeveloper(cfg *Config, userID string) bool {
	return cfg != nil && cfg.DeveloperID != "" && cfg.DeveloperID == userID
}

func (c *Config) IsGuildBlacklisted(guildID string) bool {
	return slices.Contains(c.DiscordGuildBlacklist, guildID)
}
