// Package ytdlp resolves tracks and playlists through the yt-dlp command line tool.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/keshon/jukebox/internal/music/sources"
)

const ParserName = "ytdlp"

// formatSelector prefers an opus-in-webm stream at or under 128 kb/s so
// ffmpeg can demux it without a full transcode of the container.
const formatSelector = "bestaudio[ext=webm][acodec=opus][abr<=128]/bestaudio"

const watchURLTemplate = "https://www.youtube.com/watch?v=%s"

const defaultPlaylistTitle = "Playlist"

type Client struct {
	Binary string
}

func New(binary string) *Client {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Client{Binary: binary}
}

type fragment struct {
	Duration float64 `json:"duration"`
}

type format struct {
	URL       string     `json:"url"`
	Acodec    string     `json:"acodec"`
	Fragments []fragment `json:"fragments,omitempty"`
}

type info struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	WebpageURL string   `json:"webpage_url"`
	URL        string   `json:"url"`
	Duration   float64  `json:"duration"`
	Formats    []format `json:"formats"`
}

type flatEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type flatPlaylist struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Entries []flatEntry `json:"entries"`
}

// Track resolves a URL, or a "ytsearch1:" prefixed query, to a single track
// with a fresh audio locator.
func (c *Client) Track(ctx context.Context, target, source string) (sources.Track, error) {
	out, err := c.run(ctx, target, "-f", formatSelector, "--no-playlist", "-q", "-j")
	if err != nil {
		return sources.Track{}, err
	}
	return parseTrack(out, source)
}

// Playlist lists playlist entries without resolving their audio locators.
func (c *Client) Playlist(ctx context.Context, url, source string) (sources.Playlist, error) {
	out, err := c.run(ctx, "--flat-playlist", "--dump-single-json", url)
	if err != nil {
		return sources.Playlist{}, err
	}
	pl, err := parsePlaylist(out, source)
	if err != nil {
		return sources.Playlist{}, err
	}
	pl.URL = url
	return pl, nil
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, sources.NewResolveError(sources.ClassifyMessage(msg), fmt.Errorf("yt-dlp: %s", msg))
	}
	return stdout.Bytes(), nil
}

func parseTrack(data []byte, source string) (sources.Track, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return sources.Track{}, sources.NewResolveError(sources.KindVideoNotFound, errors.New("yt-dlp returned no results"))
	}

	// ytsearch prints one JSON document per line; only the first is used.
	if i := bytes.IndexByte(data, '\n'); i > 0 {
		data = data[:i]
	}

	var inf info
	if err := json.Unmarshal(data, &inf); err != nil {
		return sources.Track{}, fmt.Errorf("json unmarshal error: %w", err)
	}

	// If the root duration is empty, we try to take it from the first fragment of the first format
	if inf.Duration == 0 && len(inf.Formats) > 0 && len(inf.Formats[0].Fragments) > 0 {
		inf.Duration = inf.Formats[0].Fragments[0].Duration
	}

	link := strings.TrimSpace(inf.URL)
	if link == "" {
		for _, f := range inf.Formats {
			if f.URL != "" && f.Acodec != "none" {
				link = strings.TrimSpace(f.URL)
				break
			}
		}
	}
	if link == "" {
		return sources.Track{}, sources.NewResolveError(sources.KindNoAudioSource, errors.New("no audio URL found"))
	}

	url := inf.WebpageURL
	if url == "" && inf.ID != "" {
		url = fmt.Sprintf(watchURLTemplate, inf.ID)
	}

	return sources.Track{
		Title:        inf.Title,
		URL:          url,
		ID:           inf.ID,
		AudioLocator: link,
		Source:       source,
		Duration:     time.Duration(inf.Duration * float64(time.Second)),
		ResolvedAt:   time.Now(),
	}, nil
}

func parsePlaylist(data []byte, source string) (sources.Playlist, error) {
	var fp flatPlaylist
	if err := json.Unmarshal(bytes.TrimSpace(data), &fp); err != nil {
		return sources.Playlist{}, fmt.Errorf("json unmarshal error: %w", err)
	}

	pl := sources.Playlist{Title: fp.Title}
	if pl.Title == "" {
		pl.Title = defaultPlaylistTitle
	}

	for _, e := range fp.Entries {
		if e.ID == "" && e.URL == "" {
			continue
		}
		url := e.URL
		if !strings.HasPrefix(url, "http") {
			url = fmt.Sprintf(watchURLTemplate, e.ID)
		}
		pl.Tracks = append(pl.Tracks, sources.Track{
			Title:  e.Title,
			URL:    url,
			ID:     e.ID,
			Source: source,
		})
	}

	if len(pl.Tracks) == 0 {
		return sources.Playlist{}, sources.NewResolveError(sources.KindVideoNotFound, errors.New("playlist has no entries"))
	}
	return pl, nil
}
