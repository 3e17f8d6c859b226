package youtube

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/keshon/jukebox/internal/music/parsers/kkdai"
	"github.com/keshon/jukebox/internal/music/parsers/ytdlp"
	"github.com/keshon/jukebox/internal/music/parsers/ytplaylist"
	"github.com/keshon/jukebox/internal/music/sources"
)

const searchPrefix = "ytsearch1:"

var ErrInvalidURL = errors.New("invalid YouTube URL format")

type YouTubeSource struct {
	ytdlp  *ytdlp.Client
	kkdai  *kkdai.Client
	lister *ytplaylist.Client
}

func New(ytdlpClient *ytdlp.Client, kkdaiClient *kkdai.Client, lister *ytplaylist.Client) *YouTubeSource {
	return &YouTubeSource{
		ytdlp:  ytdlpClient,
		kkdai:  kkdaiClient,
		lister: lister,
	}
}

func (y *YouTubeSource) Match(input string) bool {
	return isYouTubeURL(input)
}

func (y *YouTubeSource) ResolveOne(ctx context.Context, input string, parser string) (sources.Track, error) {
	parsers, err := y.parserOrder(parser)
	if err != nil {
		return sources.Track{}, err
	}

	input = strings.TrimSpace(input)

	if !isURL(input) {
		// kkdai has no search endpoint
		return y.ytdlp.Track(ctx, searchPrefix+input, sources.SourceYouTube)
	}
	if !isYouTubeURL(input) {
		return sources.Track{}, ErrInvalidURL
	}

	target := CleanVideoURL(input)
	var errs []error
	for _, p := range parsers {
		var track sources.Track
		switch p {
		case ytdlp.ParserName:
			track, err = y.ytdlp.Track(ctx, target, sources.SourceYouTube)
		case kkdai.ParserName:
			track, err = y.kkdai.Track(ctx, target, sources.SourceYouTube)
		}
		if err == nil {
			return track, nil
		}
		if ctx.Err() != nil || sources.KindOf(err).Terminal() {
			return sources.Track{}, err
		}
		errs = append(errs, fmt.Errorf("parser %s failed: %w", p, err))
	}
	return sources.Track{}, errors.Join(errs...)
}

func (y *YouTubeSource) ResolvePlaylist(ctx context.Context, url string, parser string) (sources.Playlist, error) {
	parsers, err := y.parserOrder(parser)
	if err != nil {
		return sources.Playlist{}, err
	}
	parsers = append(parsers, ytplaylist.ParserName)

	var errs []error
	for _, p := range parsers {
		var pl sources.Playlist
		switch p {
		case ytdlp.ParserName:
			pl, err = y.ytdlp.Playlist(ctx, url, sources.SourceYouTube)
		case kkdai.ParserName:
			pl, err = y.kkdai.Playlist(ctx, url, sources.SourceYouTube)
		case ytplaylist.ParserName:
			pl, err = y.lister.Playlist(ctx, url, sources.SourceYouTube)
		}
		if err == nil {
			return pl, nil
		}
		if ctx.Err() != nil {
			return sources.Playlist{}, err
		}
		errs = append(errs, fmt.Errorf("parser %s failed: %w", p, err))
	}
	return sources.Playlist{}, errors.Join(errs...)
}

func (y *YouTubeSource) SourceName() string {
	return sources.SourceYouTube
}

func (y *YouTubeSource) AvailableParsers() []string {
	return []string{ytdlp.ParserName, kkdai.ParserName}
}

func (y *YouTubeSource) parserOrder(selected string) ([]string, error) {
	parsers := y.AvailableParsers()
	if selected == "" {
		return parsers, nil
	}
	if !slices.Contains(parsers, selected) {
		return nil, errors.New(sources.SourceYouTube + " source does not support " + selected + " parser")
	}
	return sources.MoveToFront(parsers, selected), nil
}
