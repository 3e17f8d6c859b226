package source_resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keshon/jukebox/internal/music/sources"
)

var (
	ErrEmptyInput    = errors.New("input is required")
	ErrUnknownSource = errors.New("unknown source")
	ErrNoSource      = errors.New("no matching source found")
)

// Result is what a play request resolved to. Tracks keeps playlist order.
type Result struct {
	Kind          QueryKind
	PlaylistTitle string
	Tracks        []sources.Track
}

type SourceResolver struct {
	Sources  map[string]sources.Source
	Classify ClassifyFunc
}

// New registers srcs by name, with Classify as the default heuristic.
func New(srcs ...sources.Source) *SourceResolver {
	r := &SourceResolver{
		Sources:  make(map[string]sources.Source, len(srcs)),
		Classify: Classify,
	}
	for _, s := range srcs {
		r.Sources[s.SourceName()] = s
	}
	return r
}

// Resolve classifies input and resolves it to one track or a playlist.
// selectedSource and selectedParser are optional overrides.
func (r *SourceResolver) Resolve(ctx context.Context, input, selectedSource, selectedParser string) (*Result, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	kind := r.Classify(input)
	switch {
	case kind == QueryPlaylist && !isURL(input):
		// "playlist" inside free text is a search, not a playlist link
		kind = QuerySearch
	case kind == QuerySearch && isURL(input):
		// a link on a host the classifier does not know
		kind = QueryURL
	}
	src, err := r.pick(input, kind, selectedSource)
	if err != nil {
		return nil, err
	}

	switch kind {
	case QueryPlaylist:
		pl, err := src.ResolvePlaylist(ctx, input, selectedParser)
		if err != nil {
			return nil, fmt.Errorf("resolve playlist: %w", err)
		}
		return &Result{Kind: kind, PlaylistTitle: pl.Title, Tracks: pl.Tracks}, nil

	case QueryURL:
		input = stripKnownHost(input)
	}

	track, err := src.ResolveOne(ctx, input, selectedParser)
	if err != nil {
		return nil, fmt.Errorf("resolve track: %w", err)
	}
	return &Result{Kind: kind, Tracks: []sources.Track{track}}, nil
}

// ResolveOne resolves input to exactly one track, ignoring playlist context.
func (r *SourceResolver) ResolveOne(ctx context.Context, input string) (sources.Track, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return sources.Track{}, ErrEmptyInput
	}

	kind := QuerySearch
	if isURL(input) {
		kind = QueryURL
		input = stripKnownHost(input)
	}
	src, err := r.pick(input, kind, "")
	if err != nil {
		return sources.Track{}, err
	}
	return src.ResolveOne(ctx, input, "")
}

// ResolvePlaylist lists a playlist URL.
func (r *SourceResolver) ResolvePlaylist(ctx context.Context, url string) (sources.Playlist, error) {
	src, err := r.pick(url, QueryPlaylist, "")
	if err != nil {
		return sources.Playlist{}, err
	}
	return src.ResolvePlaylist(ctx, url, "")
}

// Refresh resolves a fresh audio locator for t through the source that
// produced it, keeping the queued title when the resolver returns none.
func (r *SourceResolver) Refresh(ctx context.Context, t sources.Track) (sources.Track, error) {
	src, ok := r.Sources[t.Source]
	if !ok {
		var err error
		if src, err = r.pick(t.URL, QueryURL, ""); err != nil {
			return sources.Track{}, err
		}
	}

	fresh, err := src.ResolveOne(ctx, t.URL, "")
	if err != nil {
		return sources.Track{}, err
	}
	if fresh.Title == "" {
		fresh.Title = t.Title
	}
	if fresh.ID == "" {
		fresh.ID = t.ID
	}
	return fresh, nil
}

func (r *SourceResolver) pick(input string, kind QueryKind, selected string) (sources.Source, error) {
	if selected != "" && selected != sources.SourceAuto {
		src, ok := r.Sources[selected]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSource, selected)
		}
		if kind != QuerySearch && isURL(input) && !src.Match(input) {
			return nil, errors.New("input does not match selected source: " + selected)
		}
		return src, nil
	}

	if kind == QuerySearch || !isURL(input) {
		yt, ok := r.Sources[sources.SourceYouTube]
		if !ok {
			return nil, errors.New(sources.SourceYouTube + " source not available for title search")
		}
		return yt, nil
	}

	// radio matches by probing the URL and web matches any link, so they
	// go last
	for _, name := range []string{sources.SourceYouTube, sources.SourceSoundCloud, sources.SourceRadio, sources.SourceWeb} {
		if s, ok := r.Sources[name]; ok && s.Match(input) {
			return s, nil
		}
	}
	return nil, ErrNoSource
}

// stripKnownHost drops playlist context from video links only. Query
// parameters of other hosts may be part of the stream address.
func stripKnownHost(input string) string {
	if knownHostPattern.MatchString(input) {
		return StripPlaylistParam(input)
	}
	return input
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
