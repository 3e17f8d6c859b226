// Package kkdai resolves YouTube videos and playlists in-process with the
// kkdai/youtube client, used when the yt-dlp binary cannot serve a request.
package kkdai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	youtube "github.com/kkdai/youtube/v2"

	"github.com/keshon/jukebox/internal/music/sources"
)

const ParserName = "kkdai"

type Client struct {
	yt *youtube.Client
}

// New builds a client, routed through proxyStr when it is set.
func New(proxyStr string) *Client {
	return &Client{yt: newYouTubeClient(proxyStr)}
}

// Track resolves a single video URL or ID and picks its best audio stream.
func (c *Client) Track(ctx context.Context, videoURL, source string) (sources.Track, error) {
	video, err := c.yt.GetVideoContext(ctx, videoURL)
	if err != nil {
		return sources.Track{}, mapError(err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return sources.Track{}, sources.NewResolveError(sources.KindNoAudioSource, errors.New("no audio formats found for video"))
	}
	best := formats[0]
	for _, f := range formats {
		if strings.HasPrefix(f.MimeType, "audio/") {
			best = f
			break
		}
	}

	link, err := c.yt.GetStreamURLContext(ctx, video, &best)
	if err != nil {
		return sources.Track{}, mapError(fmt.Errorf("get stream URL: %w", err))
	}

	return sources.Track{
		Title:        video.Title,
		URL:          fmt.Sprintf("https://www.youtube.com/watch?v=%s", video.ID),
		ID:           video.ID,
		AudioLocator: link,
		Source:       source,
		Duration:     video.Duration,
		ResolvedAt:   time.Now(),
	}, nil
}

// Playlist lists the videos of a playlist URL without resolving streams.
func (c *Client) Playlist(ctx context.Context, url, source string) (sources.Playlist, error) {
	pl, err := c.yt.GetPlaylistContext(ctx, url)
	if err != nil {
		return sources.Playlist{}, mapError(err)
	}

	out := sources.Playlist{Title: pl.Title, URL: url}
	if out.Title == "" {
		out.Title = "Playlist"
	}
	for _, v := range pl.Videos {
		if v == nil || v.ID == "" {
			continue
		}
		out.Tracks = append(out.Tracks, sources.Track{
			Title:    v.Title,
			URL:      fmt.Sprintf("https://www.youtube.com/watch?v=%s", v.ID),
			ID:       v.ID,
			Source:   source,
			Duration: v.Duration,
		})
	}
	if len(out.Tracks) == 0 {
		return sources.Playlist{}, sources.NewResolveError(sources.KindVideoNotFound, errors.New("playlist has no entries"))
	}
	return out, nil
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, youtube.ErrVideoPrivate):
		return sources.NewResolveError(sources.KindPrivateVideo, err)
	case errors.Is(err, youtube.ErrLoginRequired):
		return sources.NewResolveError(sources.KindAgeRestricted, err)
	default:
		return sources.NewResolveError(sources.ClassifyMessage(err.Error()), err)
	}
}
