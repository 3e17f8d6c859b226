package source_resolver

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/keshon/jukebox/internal/music/sources/youtube"
)

// QueryKind is the closed set of shapes a play request can take.
type QueryKind int

const (
	QuerySearch QueryKind = iota
	QueryURL
	QueryPlaylist
)

func (k QueryKind) String() string {
	switch k {
	case QueryURL:
		return "url"
	case QueryPlaylist:
		return "playlist"
	default:
		return "search"
	}
}

// ClassifyFunc decides how an input is resolved.
type ClassifyFunc func(input string) QueryKind

var knownHostPattern = regexp.MustCompile(`(?i)(?:^|[/.])(youtube\.com|youtu\.be|soundcloud\.com)(?:[/:?]|$)`)

// Classify is the default heuristic. Any input mentioning "playlist" is a
// playlist, so a search such as "chill playlist" is misread as one.
func Classify(input string) QueryKind {
	in := strings.TrimSpace(input)
	switch {
	case strings.Contains(strings.ToLower(in), "playlist"):
		return QueryPlaylist
	case knownHostPattern.MatchString(in):
		return QueryURL
	default:
		return QuerySearch
	}
}

// playlistParams associate a single video with a playlist context.
var playlistParams = []string{"list", "index", "start_radio", "pp"}

// StripPlaylistParam reduces a video URL shared from inside a playlist to
// the video itself.
func StripPlaylistParam(raw string) string {
	raw = strings.TrimSpace(raw)
	if cleaned := youtube.CleanVideoURL(raw); cleaned != raw {
		return cleaned
	}

	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		if before, _, ok := strings.Cut(raw, "&list="); ok {
			return before
		}
		return raw
	}

	q := u.Query()
	for _, p := range playlistParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
