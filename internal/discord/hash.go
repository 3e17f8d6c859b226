package discord

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/bwmarrin/discordgo"
)

type hashedOption struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        int            `json:"type"`
	Required    bool           `json:"required,omitempty"`
	Choices     []hashedChoice `json:"choices,omitempty"`
	Options     []hashedOption `json:"options,omitempty"`
}

type hashedChoice struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// hashCommand fingerprints the user visible parts of a definition. IDs and
// versions assigned by Discord are ignored. Option order is kept, since
// Discord shows options in declaration order.
func hashCommand(c *discordgo.ApplicationCommand) string {
	data, _ := json.Marshal(struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Type        int            `json:"type"`
		Options     []hashedOption `json:"options,omitempty"`
	}{c.Name, c.Description, int(c.Type), hashOptions(c.Options)})

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hashOptions(opts []*discordgo.ApplicationCommandOption) []hashedOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]hashedOption, 0, len(opts))
	for _, o := range opts {
		h := hashedOption{
			Name:        o.Name,
			Description: o.Description,
			Type:        int(o.Type),
			Required:    o.Required,
			Options:     hashOptions(o.Options),
		}
		for _, ch := range o.Choices {
			h.Choices = append(h.Choices, hashedChoice{Name: ch.Name, Value: ch.Value})
		}
		out = append(out, h)
	}
	return out
}
