package config

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnknownPreset = errors.New("unknown preset")

// Presets maps a preset name to the inputs it can play.
type Presets map[string][]string

// DefaultPresets is used when no presets file is configured.
func DefaultPresets() Presets {
	return Presets{
		"gaming": {"https://www.youtube.com/playlist?list=PL_VhV5m_X3BK-j1rqyOG5j7FraqSEIxVw"},
	}
}

type presetsFile struct {
	Presets map[string][]string `yaml:"presets"`
}

// LoadPresets reads a YAML presets file on top of the defaults. An empty
// path returns the defaults.
func LoadPresets(path string) (Presets, error) {
	presets := DefaultPresets()
	if path == "" {
		return presets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}

	var f presetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}

	for name, inputs := range f.Presets {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || len(inputs) == 0 {
			continue
		}
		presets[name] = inputs
	}
	return presets, nil
}

// Names returns preset names in alphabetical order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Pick returns a random input of the named preset.
func (p Presets) Pick(name string) (string, error) {
	inputs := p[strings.ToLower(name)]
	if len(inputs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return inputs[rand.IntN(len(inputs))], nil
}
