package player

import (
	"context"
	"errors"

	"github.com/keshon/jukebox/internal/music/sources"
)

type State int

const (
	StateIdle State = iota
	StateBuffering
	StatePlaying
	// StateTransitioning covers the teardown of a skipped stream.
	StateTransitioning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuffering:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StateTransitioning:
		return "transitioning"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// EndReason records why the current track stopped.
type EndReason string

const (
	EndFinished   EndReason = "finished"
	EndLoadFailed EndReason = "load_failed"
	EndSkipped    EndReason = "skipped"
	EndStopped    EndReason = "stopped"
)

type EventType string

const (
	EventNowPlaying  EventType = "now_playing"
	EventTrackFailed EventType = "track_failed"
	EventQueueEmpty  EventType = "queue_empty"
	EventStopped     EventType = "stopped"
)

func (t EventType) StringEmoji() string {
	m := map[EventType]string{
		EventNowPlaying:  "▶️",
		EventTrackFailed: "❌",
		EventQueueEmpty:  "🎶",
		EventStopped:     "⏹",
	}
	return m[t]
}

type Event struct {
	Type   EventType
	Track  sources.Track
	Reason EndReason
	Err    error

	// Missed holds track failures that found the channel full. They are
	// delivered, oldest first, ahead of the event carrying them.
	Missed []Event
}

var (
	ErrNothingToSkip    = errors.New("nothing to skip")
	ErrTerminated       = errors.New("session terminated")
	ErrVoiceUnavailable = errors.New("voice connection unavailable")
)

// AudioStream is an open transcoder output. ReadFrame returns io.EOF once
// the input has been fully played.
type AudioStream interface {
	ReadFrame() ([]byte, error)
	Close() error
}

type Transcoder interface {
	Open(ctx context.Context, locator string) (AudioStream, error)
}

// VoiceTransport hands out the single voice connection of a guild.
type VoiceTransport interface {
	JoinOrGet(guildID, channelID string) (VoiceConn, error)
}

type VoiceConn interface {
	// Submit plays s until it ends, fails or ctx is cancelled. A clean end
	// returns nil or io.EOF.
	Submit(ctx context.Context, s AudioStream) error
	Destroy() error
}

// Refresher resolves a new audio locator for a queued track.
type Refresher interface {
	Refresh(ctx context.Context, t sources.Track) (sources.Track, error)
}
