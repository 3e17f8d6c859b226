package soundcloud

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/keshon/jukebox/internal/music/parsers/ytdlp"
	"github.com/keshon/jukebox/internal/music/sources"
)

type SoundCloudSource struct {
	ytdlp    *ytdlp.Client
	resolver *SoundCloudResolver
}

func New(ytdlpClient *ytdlp.Client) *SoundCloudSource {
	return &SoundCloudSource{
		ytdlp:    ytdlpClient,
		resolver: NewSoundCloudResolver(),
	}
}

func (s *SoundCloudSource) Match(input string) bool {
	return strings.Contains(input, "soundcloud.com")
}

func (s *SoundCloudSource) ResolveOne(ctx context.Context, input string, parser string) (sources.Track, error) {
	if err := s.checkParser(parser); err != nil {
		return sources.Track{}, err
	}

	input = strings.TrimSpace(input)

	// otherwise, search by title
	if !isURL(input) {
		trackURL, err := s.resolver.SearchFirstTrackURL(ctx, input)
		if err != nil {
			return sources.Track{}, err
		}
		input = trackURL
	}

	return s.ytdlp.Track(ctx, input, sources.SourceSoundCloud)
}

func (s *SoundCloudSource) ResolvePlaylist(ctx context.Context, url string, parser string) (sources.Playlist, error) {
	if err := s.checkParser(parser); err != nil {
		return sources.Playlist{}, err
	}
	return s.ytdlp.Playlist(ctx, url, sources.SourceSoundCloud)
}

func (s *SoundCloudSource) SourceName() string {
	return sources.SourceSoundCloud
}

func (s *SoundCloudSource) AvailableParsers() []string {
	return []string{ytdlp.ParserName}
}

func (s *SoundCloudSource) checkParser(parser string) error {
	if parser != "" && !slices.Contains(s.AvailableParsers(), parser) {
		return errors.New(sources.SourceSoundCloud + " source does not support " + parser + " parser")
	}
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
