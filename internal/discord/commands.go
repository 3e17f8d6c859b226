package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/pkg/retrylimit"
)

// registerCommands syncs slash commands for a guild with Discord:
// deletes obsolete ones, creates/updates commands whose definition has changed.
func (b *Bot) registerCommands(ctx context.Context, guildID string) error {
	appID, err := b.appID()
	if err != nil {
		return err
	}

	var remote []*discordgo.ApplicationCommand
	if err := b.call(ctx, func() (err error) {
		remote, err = b.dg.ApplicationCommands(appID, guildID)
		return err
	}); err != nil {
		return fmt.Errorf("list commands: %w", err)
	}

	cached, err := b.storage.CommandHashes(guildID)
	if err != nil {
		log.Warn().Err(err).Str("guild_id", guildID).Msg("failed to read command hashes, re-registering all")
		cached = map[string]string{}
	}

	plan := planSync(remote, buildCommandDefinitions(b.commands), cached)

	for _, rc := range plan.remove {
		log.Info().Str("guild_id", guildID).Str("command", rc.Name).Msg("deleting obsolete command")
		if err := b.call(ctx, func() error {
			return b.dg.ApplicationCommandDelete(appID, guildID, rc.ID)
		}); err != nil {
			log.Error().Err(err).Str("guild_id", guildID).Str("command", rc.Name).Msg("failed to delete command")
		}
	}

	hashes := make(map[string]string, len(plan.hashes))
	for _, def := range plan.keep {
		hashes[def.Name] = plan.hashes[def.Name]
	}
	for _, def := range plan.upsert {
		if err := b.call(ctx, func() error {
			_, err := b.dg.ApplicationCommandCreate(appID, guildID, def)
			return err
		}); err != nil {
			log.Error().Err(err).Str("guild_id", guildID).Str("command", def.Name).Msg("failed to register command")
			continue
		}
		hashes[def.Name] = plan.hashes[def.Name]
		log.Info().Str("guild_id", guildID).Str("command", def.Name).Msg("command registered")
	}

	return b.storage.SetCommandHashes(guildID, hashes)
}

type syncPlan struct {
	remove []*discordgo.ApplicationCommand
	upsert []*discordgo.ApplicationCommand
	keep   []*discordgo.ApplicationCommand
	hashes map[string]string
}

// planSync decides what to delete and what to (re)create. A command is only
// skipped when Discord has it and its cached hash still matches.
func planSync(remote, local []*discordgo.ApplicationCommand, cached map[string]string) syncPlan {
	p := syncPlan{hashes: make(map[string]string, len(local))}

	remoteNames := make(map[string]bool, len(remote))
	for _, rc := range remote {
		remoteNames[rc.Name] = true
	}

	localNames := make(map[string]bool, len(local))
	for _, def := range local {
		localNames[def.Name] = true
		h := hashCommand(def)
		p.hashes[def.Name] = h
		if remoteNames[def.Name] && cached[def.Name] == h {
			p.keep = append(p.keep, def)
		} else {
			p.upsert = append(p.upsert, def)
		}
	}

	for _, rc := range remote {
		if !localNames[rc.Name] {
			p.remove = append(p.remove, rc)
		}
	}
	return p
}

// buildCommandDefinitions returns ApplicationCommand definitions for all registered commands.
func buildCommandDefinitions(r *command.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range r.All() {
		slash, ok := command.Root(c).(command.SlashProvider)
		if !ok {
			continue
		}
		def := slash.SlashDefinition()
		if def == nil {
			continue
		}
		if def.Type == 0 {
			def.Type = discordgo.ChatApplicationCommand
		}
		defs = append(defs, def)
	}
	return defs
}

// call paces a REST request through the shared limiter and retries 429/5xx.
func (b *Bot) call(ctx context.Context, fn func() error) error {
	cfg := retrylimit.DefaultConfig()
	cfg.Status = restStatus
	return retrylimit.Do(ctx, b.limiter, cfg, fn)
}

func restStatus(err error) int {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode
	}
	return 0
}

// appID returns the bot's application ID, fetching from Discord if not cached in State.
func (b *Bot) appID() (string, error) {
	if u := b.dg.State.User; u != nil && u.ID != "" {
		return u.ID, nil
	}
	u, err := b.dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("failed to fetch bot user: %w", err)
	}
	return u.ID, nil
}
