package sources

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a single track could not be resolved or streamed.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNoAudioSource
	KindVideoNotFound
	KindPrivateVideo
	KindAgeRestricted
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoAudioSource:
		return "no_audio_source"
	case KindVideoNotFound:
		return "video_not_found"
	case KindPrivateVideo:
		return "private_video"
	case KindAgeRestricted:
		return "age_restricted"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// UserMessage is the text shown in chat for a failure of this kind.
func (k ErrorKind) UserMessage() string {
	switch k {
	case KindNoAudioSource:
		return "Could not extract audio from the provided URL."
	case KindVideoNotFound:
		return "The requested video could not be found."
	case KindPrivateVideo:
		return "The requested video is private."
	case KindAgeRestricted:
		return "The requested video is age-restricted and cannot be played."
	case KindUnavailable:
		return "The requested video is unavailable."
	default:
		return "An error occurred while fetching video info."
	}
}

// Terminal kinds describe the media itself, so trying another backend will
// not help.
func (k ErrorKind) Terminal() bool {
	switch k {
	case KindVideoNotFound, KindPrivateVideo, KindAgeRestricted, KindUnavailable:
		return true
	}
	return false
}

var (
	ErrNoAudioSource = &ResolveError{Kind: KindNoAudioSource}
	ErrVideoNotFound = &ResolveError{Kind: KindVideoNotFound}
	ErrPrivateVideo  = &ResolveError{Kind: KindPrivateVideo}
	ErrAgeRestricted = &ResolveError{Kind: KindAgeRestricted}
	ErrUnavailable   = &ResolveError{Kind: KindUnavailable}
)

// ResolveError is returned by resolvers for per-track failures.
type ResolveError struct {
	Kind ErrorKind
	Err  error
}

func (e *ResolveError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Is matches any ResolveError of the same kind, so callers can write
// errors.Is(err, sources.ErrPrivateVideo).
func (e *ResolveError) Is(target error) bool {
	t, ok := target.(*ResolveError)
	return ok && t.Kind == e.Kind
}

// NewResolveError wraps err with kind.
func NewResolveError(kind ErrorKind, err error) *ResolveError {
	return &ResolveError{Kind: kind, Err: err}
}

// KindOf extracts the kind of err, KindUnknown when err carries none.
func KindOf(err error) ErrorKind {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// UserMessage returns the chat message for err.
func UserMessage(err error) string {
	return KindOf(err).UserMessage()
}

// ClassifyMessage maps resolver tool output to an error kind.
func ClassifyMessage(msg string) ErrorKind {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "private video"), strings.Contains(m, "video is private"):
		return KindPrivateVideo
	case strings.Contains(m, "confirm your age"), strings.Contains(m, "age-restricted"),
		strings.Contains(m, "age restricted"), strings.Contains(m, "inappropriate for some users"):
		return KindAgeRestricted
	case strings.Contains(m, "no audio url"), strings.Contains(m, "requested format is not available"):
		return KindNoAudioSource
	case strings.Contains(m, "video unavailable"), strings.Contains(m, "is not available"),
		strings.Contains(m, "has been removed"), strings.Contains(m, "unavailable"):
		return KindUnavailable
	case strings.Contains(m, "not found"), strings.Contains(m, "404"),
		strings.Contains(m, "incomplete youtube id"), strings.Contains(m, "does not exist"),
		strings.Contains(m, "no video results"):
		return KindVideoNotFound
	default:
		return KindUnknown
	}
}
