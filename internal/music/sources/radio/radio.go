// Package radio plays direct internet radio and audio stream URLs.
package radio

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/keshon/jukebox/internal/music/sources"
)

const ParserName = "ffmpeg"

var ErrPlaylistUnsupported = errors.New(sources.SourceRadio + " source does not support playlists")

type RadioSource struct {
	resolver *RadioResolver
}

func New() *RadioSource {
	return &RadioSource{
		resolver: NewRadioResolver(),
	}
}

func (r *RadioSource) Match(input string) bool {
	ok, _, err := r.resolver.IsValidURL(context.Background(), input)
	return err == nil && ok
}

// ResolveOne validates the stream and returns it as its own audio locator.
// The locator does not expire, so ResolvedAt is left zero.
func (r *RadioSource) ResolveOne(ctx context.Context, input string, parser string) (sources.Track, error) {
	if parser != "" && !slices.Contains(r.AvailableParsers(), parser) {
		return sources.Track{}, errors.New(sources.SourceRadio + " source does not support " + parser + " parser")
	}

	input = strings.TrimSpace(input)
	ok, _, err := r.resolver.IsValidURL(ctx, input)
	if err != nil {
		return sources.Track{}, sources.NewResolveError(sources.KindNoAudioSource, err)
	}
	if !ok {
		return sources.Track{}, sources.NewResolveError(sources.KindNoAudioSource, errors.New("invalid radio URL: "+input))
	}

	return sources.Track{
		Title:        input, // maybe later via icy-* headers
		URL:          input,
		AudioLocator: input,
		Source:       sources.SourceRadio,
	}, nil
}

func (r *RadioSource) ResolvePlaylist(ctx context.Context, url string, parser string) (sources.Playlist, error) {
	return sources.Playlist{}, ErrPlaylistUnsupported
}

func (r *RadioSource) SourceName() string {
	return sources.SourceRadio
}

func (r *RadioSource) AvailableParsers() []string {
	return []string{ParserName}
}
