// Package web resolves arbitrary page URLs (Bandcamp, Vimeo and the like)
// through yt-dlp's generic extractors.
package web

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/keshon/jukebox/internal/music/parsers/ytdlp"
	"github.com/keshon/jukebox/internal/music/sources"
)

type WebSource struct {
	ytdlp *ytdlp.Client
}

func New(ytdlpClient *ytdlp.Client) *WebSource {
	return &WebSource{ytdlp: ytdlpClient}
}

func (w *WebSource) Match(input string) bool {
	return isURL(strings.TrimSpace(input))
}

func (w *WebSource) ResolveOne(ctx context.Context, input string, parser string) (sources.Track, error) {
	if err := w.checkParser(parser); err != nil {
		return sources.Track{}, err
	}
	input = strings.TrimSpace(input)
	if !isURL(input) {
		return sources.Track{}, errors.New(sources.SourceWeb + " source needs a link, not a search query")
	}
	return w.ytdlp.Track(ctx, input, sources.SourceWeb)
}

func (w *WebSource) ResolvePlaylist(ctx context.Context, url string, parser string) (sources.Playlist, error) {
	if err := w.checkParser(parser); err != nil {
		return sources.Playlist{}, err
	}
	return w.ytdlp.Playlist(ctx, url, sources.SourceWeb)
}

func (w *WebSource) SourceName() string {
	return sources.SourceWeb
}

func (w *WebSource) AvailableParsers() []string {
	return []string{ytdlp.ParserName}
}

func (w *WebSource) checkParser(parser string) error {
	if parser != "" && !slices.Contains(w.AvailableParsers(), parser) {
		return errors.New(sources.SourceWeb + " source does not support " + parser + " parser")
	}
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
