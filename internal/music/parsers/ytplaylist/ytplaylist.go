// Package ytplaylist lists YouTube playlists with the pure-Go ytget/ytdlp
// library. It needs no external binary, so it is the last playlist fallback.
package ytplaylist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ytget/ytdlp/v2"

	"github.com/keshon/jukebox/internal/music/sources"
)

const ParserName = "ytget"

// URL parameters and separators
const (
	playlistParam  = "list="
	paramSeparator = "&"
)

const videoURLTemplate = "https://www.youtube.com/watch?v=%s"

var ErrNoPlaylistID = errors.New("could not extract playlist ID from URL")

type Client struct{}

func New() *Client { return &Client{} }

// Playlist fetches every item of the playlist referenced by url.
func (c *Client) Playlist(ctx context.Context, url, source string) (sources.Playlist, error) {
	id := PlaylistID(url)
	if id == "" {
		return sources.Playlist{}, fmt.Errorf("%w: %s", ErrNoPlaylistID, url)
	}

	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, id, 0)
	if err != nil {
		if ctx.Err() != nil {
			return sources.Playlist{}, ctx.Err()
		}
		return sources.Playlist{}, sources.NewResolveError(sources.ClassifyMessage(err.Error()), fmt.Errorf("failed to get playlist items: %w", err))
	}

	pl := sources.Playlist{Title: "Playlist", URL: url}
	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		pl.Tracks = append(pl.Tracks, sources.Track{
			Title:  it.Title,
			URL:    fmt.Sprintf(videoURLTemplate, it.VideoID),
			ID:     it.VideoID,
			Source: source,
		})
	}
	if len(pl.Tracks) == 0 {
		return sources.Playlist{}, sources.NewResolveError(sources.KindVideoNotFound, errors.New("playlist has no entries"))
	}
	return pl, nil
}

// PlaylistID extracts the value of the list= parameter.
func PlaylistID(url string) string {
	_, after, ok := strings.Cut(url, playlistParam)
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(after, paramSeparator)
	return strings.TrimSpace(id)
}
