package sources

import (
	"context"
	"time"
)

const (
	SourceAuto       = "auto"
	SourceYouTube    = "youtube"
	SourceRadio      = "radio"
	SourceSoundCloud = "soundcloud"
	SourceWeb        = "web"
)

// Track is a resolved, playable unit. AudioLocator is empty for playlist
// entries until the player resolves it right before streaming.
type Track struct {
	Title        string        `json:"title"`
	URL          string        `json:"url"`
	ID           string        `json:"id"`
	AudioLocator string        `json:"-"`
	Source       string        `json:"source"`
	Duration     time.Duration `json:"duration"`
	ResolvedAt   time.Time     `json:"-"`
}

// HasFreshLocator reports whether the audio locator can be used without
// re-resolving the track.
func (t Track) HasFreshLocator(ttl time.Duration) bool {
	if t.AudioLocator == "" {
		return false
	}
	if ttl <= 0 || t.ResolvedAt.IsZero() {
		return true
	}
	return time.Since(t.ResolvedAt) < ttl
}

// DisplayTitle returns the best human readable label for the track.
func (t Track) DisplayTitle() string {
	switch {
	case t.Title != "":
		return t.Title
	case t.URL != "":
		return t.URL
	default:
		return "Unknown track"
	}
}

// Playlist is an ordered set of tracks resolved from a single playlist URL.
type Playlist struct {
	Title  string
	URL    string
	Tracks []Track
}

type Source interface {
	// Match checks if this source can handle the given input
	Match(input string) bool

	// ResolveOne turns a URL or a search query into a single playable track
	ResolveOne(ctx context.Context, input string, parser string) (Track, error)

	// ResolvePlaylist lists the entries of a playlist URL in order
	ResolvePlaylist(ctx context.Context, url string, parser string) (Playlist, error)

	// SourceName returns the string identifier ("youtube", "radio", etc.)
	SourceName() string

	// AvailableParsers returns the list of parsers supported by this source
	AvailableParsers() []string
}

// MoveToFront returns a new slice where item is the first element.
func MoveToFront(list []string, item string) []string {
	if len(list) == 0 || item == "" {
		return list
	}
	if list[0] == item {
		return list
	}

	ordered := make([]string, 0, len(list))
	ordered = append(ordered, item)

	for _, v := range list {
		if v != item {
			ordered = append(ordered, v)
		}
	}
	return ordered
}
