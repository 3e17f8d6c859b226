package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keshon/jukebox/internal/music/sources"
)

const defaultEventBuffer = 64

// Config carries the collaborators shared by every session.
type Config struct {
	Transcoder  Transcoder
	Voice       VoiceTransport
	Refresher   Refresher
	LocatorTTL  time.Duration
	EventBuffer int
	Logger      zerolog.Logger
}

// Session is the playback state of one guild. All state changes happen
// under mu; stream I/O happens in one attempt goroutine at a time.
type Session struct {
	ID             string
	GuildID        string
	VoiceChannelID string
	TextChannelID  string

	transcoder Transcoder
	transport  VoiceTransport
	refresher  Refresher
	ttl        time.Duration
	log        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event

	mu      sync.Mutex
	state   State
	queue   []sources.Track
	current *sources.Track
	conn    VoiceConn
	missed  []Event

	// generation of the running attempt; completions of older ones are ignored
	gen           uint64
	attemptCancel context.CancelFunc
	attemptDone   chan struct{}
}

func NewSession(guildID, voiceChannelID, textChannelID string, cfg Config) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	buf := cfg.EventBuffer
	if buf <= 0 {
		buf = defaultEventBuffer
	}

	id := uuid.NewString()
	return &Session{
		ID:             id,
		GuildID:        guildID,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  textChannelID,
		transcoder:     cfg.Transcoder,
		transport:      cfg.Voice,
		refresher:      cfg.Refresher,
		ttl:            cfg.LocatorTTL,
		log:            cfg.Logger.With().Str("guild_id", guildID).Str("session_id", id).Logger(),
		ctx:            ctx,
		cancel:         cancel,
		events:         make(chan Event, buf),
	}
}

// Events is closed once the session stops.
func (s *Session) Events() <-chan Event { return s.events }

// Context is cancelled when the session stops. Resolution started on
// behalf of the session should run under it.
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Current() (sources.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return sources.Track{}, false
	}
	return *s.current, true
}

// Connected reports whether the session holds a voice connection. It is
// false until the first track starts and again after Stop.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Queue returns a copy of the tracks waiting behind the current one.
func (s *Session) Queue() []sources.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sources.Track, len(s.queue))
	copy(out, s.queue)
	return out
}

// Enqueue appends tracks in order and starts playback if the session is idle.
func (s *Session) Enqueue(tracks ...sources.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateTerminated {
		return ErrTerminated
	}
	if len(tracks) == 0 {
		return nil
	}

	s.queue = append(s.queue, tracks...)
	s.log.Debug().Int("added", len(tracks)).Int("queue_len", len(s.queue)).Str("state", s.state.String()).Msg("tracks enqueued")

	s.advanceLocked()
	return nil
}

// Skip ends the current track and moves on to the next one. It returns
// once the skipped stream has been released.
func (s *Session) Skip() (sources.Track, error) {
	s.mu.Lock()
	switch s.state {
	case StatePlaying, StateBuffering:
	case StateTerminated:
		s.mu.Unlock()
		return sources.Track{}, ErrTerminated
	default:
		s.mu.Unlock()
		return sources.Track{}, ErrNothingToSkip
	}

	skipped := *s.current
	s.gen++
	s.state = StateTransitioning
	s.current = nil
	cancel, done := s.attemptCancel, s.attemptDone
	s.mu.Unlock()

	s.log.Info().Str("track", skipped.DisplayTitle()).Str("reason", string(EndSkipped)).Msg("track ended")
	cancel()
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTransitioning {
		s.state = StateIdle
		s.advanceLocked()
	}
	return skipped, nil
}

// Stop terminates the session: the queue is cleared, any stream or
// pending resolution is cancelled and the voice connection is destroyed.
// Calling Stop again is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return
	}

	var stopped sources.Track
	if s.current != nil {
		stopped = *s.current
	}
	s.state = StateTerminated
	s.queue = nil
	s.current = nil
	s.gen++
	s.emit(Event{Type: EventStopped, Track: stopped, Reason: EndStopped})
	close(s.events)
	done := s.attemptDone
	s.mu.Unlock()

	s.cancel()
	if done != nil {
		<-done
	}

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Destroy(); err != nil {
			s.log.Warn().Err(err).Msg("failed to destroy voice connection")
		}
	}
	s.log.Info().Msg("session stopped")
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	GuildID        string         `json:"guild_id"`
	SessionID      string         `json:"session_id"`
	State          string         `json:"state"`
	Current        *sources.Track `json:"current,omitempty"`
	QueueLength    int            `json:"queue_length"`
	VoiceChannelID string         `json:"voice_channel_id"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		GuildID:        s.GuildID,
		SessionID:      s.ID,
		State:          s.state.String(),
		QueueLength:    len(s.queue),
		VoiceChannelID: s.VoiceChannelID,
	}
	if s.current != nil {
		cur := *s.current
		snap.Current = &cur
	}
	return snap
}

// advanceLocked is the only place a stream attempt starts. It does nothing
// unless the session is idle.
func (s *Session) advanceLocked() {
	if s.state != StateIdle {
		return
	}
	if len(s.queue) == 0 {
		s.emit(Event{Type: EventQueueEmpty})
		return
	}

	track := s.queue[0]
	s.queue[0] = sources.Track{}
	s.queue = s.queue[1:]

	s.current = &track
	s.state = StateBuffering
	s.gen++

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	s.attemptCancel, s.attemptDone = cancel, done

	go s.play(ctx, s.gen, track, done)
}

func (s *Session) play(ctx context.Context, gen uint64, track sources.Track, done chan struct{}) {
	defer close(done)

	err := s.stream(ctx, gen, track)
	s.finish(gen, track, err)
}

func (s *Session) stream(ctx context.Context, gen uint64, track sources.Track) error {
	conn, err := s.voiceConn()
	if err != nil {
		return err
	}

	if !track.HasFreshLocator(s.ttl) && s.refresher != nil {
		fresh, err := s.refresher.Refresh(ctx, track)
		if err != nil {
			return fmt.Errorf("refresh locator: %w", err)
		}
		fresh.ResolvedAt = time.Now()
		track = fresh

		s.mu.Lock()
		if s.gen == gen && s.current != nil {
			s.current = &fresh
		}
		s.mu.Unlock()
	}

	st, err := s.transcoder.Open(ctx, track.AudioLocator)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer st.Close()

	if !s.markPlaying(gen, track) {
		return ctx.Err()
	}
	return conn.Submit(ctx, st)
}

func (s *Session) voiceConn() (VoiceConn, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		return conn, nil
	}

	conn, err := s.transport.JoinOrGet(s.GuildID, s.VoiceChannelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVoiceUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTerminated {
		_ = conn.Destroy()
		return nil, ErrTerminated
	}
	s.conn = conn
	return conn, nil
}

func (s *Session) markPlaying(gen uint64, track sources.Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state != StateBuffering {
		return false
	}
	s.state = StatePlaying
	s.log.Info().Str("track", track.DisplayTitle()).Int("queue_len", len(s.queue)).Msg("now playing")
	s.emit(Event{Type: EventNowPlaying, Track: track})
	return true
}

func (s *Session) finish(gen uint64, track sources.Track, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.state == StateTerminated {
		return
	}
	s.attemptCancel()
	s.current = nil
	s.state = StateIdle

	if err != nil && !errors.Is(err, io.EOF) {
		s.log.Warn().Err(err).Str("track", track.DisplayTitle()).Str("reason", string(EndLoadFailed)).Msg("track ended")
		s.emit(Event{Type: EventTrackFailed, Track: track, Reason: EndLoadFailed, Err: err})

		if errors.Is(err, ErrVoiceUnavailable) {
			// no voice connection means nothing queued can play either
			s.queue = nil
			return
		}
	} else {
		s.log.Info().Str("track", track.DisplayTitle()).Str("reason", string(EndFinished)).Msg("track ended")
	}

	s.advanceLocked()
}

// emit must be called with mu held while the session is not terminated,
// or from Stop right before the channel is closed.
func (s *Session) emit(ev Event) {
	if len(s.missed) > 0 {
		ev.Missed = s.missed
	}
	select {
	case s.events <- ev:
		s.missed = nil
		return
	default:
	}

	if ev.Type == EventTrackFailed {
		ev.Missed = nil
		s.missed = append(s.missed, ev)
		s.log.Debug().Int("missed", len(s.missed)).Msg("event channel full, holding track failure")
		return
	}
	s.log.Warn().Str("event", string(ev.Type)).Msg("session event dropped (channel full)")
}
