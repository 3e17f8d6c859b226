package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/jukebox/internal/music/sources"
)

const waitFor = 2 * time.Second

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == want }, waitFor, time.Millisecond,
		"state never became %s", want)
}

func nextEvent(t *testing.T, s *Session, typ EventType) Event {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case ev, ok := <-s.Events():
			require.True(t, ok, "events closed while waiting for %s", typ)
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event", typ)
		}
	}
}

func TestPlaysTracksInEnqueueOrder(t *testing.T) {
	h := newHarness()
	s := NewSession("g1", "vc", "tc", h.cfg)
	defer s.Stop()

	require.NoError(t, s.Enqueue(track("a"), track("b")))
	require.NoError(t, s.Enqueue(track("c")))

	for _, name := range []string{"a", "b", "c"} {
		st := h.tr.next(t)
		assert.Equal(t, "loc-"+name, st.locator)
		assert.Equal(t, name, nextEvent(t, s, EventNowPlaying).Track.ID)
		st.end <- nil
	}

	nextEvent(t, s, EventQueueEmpty)
	waitState(t, s, StateIdle)

	_, maxOpen, opened := h.tr.stats()
	assert.Equal(t, []string{"loc-a", "loc-b", "loc-c"}, opened)
	assert.Equal(t, 1, maxOpen)
}

func TestTrackAThenTrackB(t *testing.T) {
	h := newHarness()
	s := NewSession("g1", "vc", "tc", h.cfg)
	defer s.Stop()

	assert.Equal(t, StateIdle, s.State())
	require.NoError(t, s.Enqueue(track("a")))
	require.NoError(t, s.Enqueue(track("b")))

	a := h.tr.next(t)
	nextEvent(t, s, EventNowPlaying)
	assert.Equal(t, StatePlaying, s.State())
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	assert.Len(t, s.Queue(), 1)

	a.end <- nil

	b := h.tr.next(t)
	assert.Equal(t, "loc-b", b.locator)
	assert.True(t, a.closed.Load())
	assert.Equal(t, "b", nextEvent(t, s, EventNowPlaying).Track.ID)
	assert.Equal(t, StatePlaying, s.State())
	assert.Empty(t, s.Queue())
}

func TestSkipOnIdleSession(t *testing.T) {
	h := newHarness()
	s := NewSession("g1", "vc", "tc", h.cfg)
	defer s.Stop()

	_, err := s.Skip()
	assert.ErrorIs(t, err, ErrNothingToSkip)
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.Queue())
}

func TestSkipReleasesStreamBeforeNextStarts(t *testing.T) {
	h := newHarness()
	s := NewSession("g1", "vc", "tc", h.cfg)
	defer s.Stop()

	require.NoError(t, s.Enqueue(track("a"), track("b")))
	a := h.tr.next(t)
	waitState(t, s, StatePlaying)

	skipped, err := s.Skip()
	require.NoError(t, err)
	assert.Equal(t, "a", skipped.ID)
	assert.True(t, a.closed.Load())

	b := h.tr.next(t)
	assert.Equal(t, "loc-b", b.locator)
	waitState(t, s, StatePlaying)

	_, maxOpen, _ := h.tr.stats()
	assert.Equal(t, 1, maxOpen)
}

func TestSkipLastTrackLeavesSessionIdle(t *testing.T) {
	h := newHarness()
	s := NewSession("g1", "vc", "tc", h.cfg)
	defer s.Stop()

	require.NoError(t, s.Enqueue(track("a")))
	h.tr.next(t)
	waitState(t, s, StatePlaying)

	_, err := s.Skip()
	require.NoError(t, err)
	assert.Equal(t, StateIdle, s.State())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestFailedTrackDoesNotBlockQueue(t *testing.T) {
	h := newHarness()
	h.cfg.Refresher = refreshFunc(func(ctx context.Context, tr sources.Track) (sources.Track, error) {
		return sources.Track{}, sources.NewResolveError(sources.KindVideoNotFound, errors.New("gone"))
	})
	h.tr.failing["loc-broken"] = errors.New("ffmpeg exited")

	s := NewSession("g1", "vc", "tc", h.cfg)
	defer s.Stop()

	missing := sources.Track{Title: "missing", URL: "https://example.com/missing"}
	require.NoError(t, s.Enqueue(missing, track("broken"), track("ok")))

	ev := nextEvent(t, s, EventTrackFailed)
	assert.Equal(t, "missing", ev.Track.Title)
	assert.Equal(t, EndLoadFailed, ev.Reason)
	assert.ErrorIs(t, ev.Err, sources.ErrVideoNotFound)

	ev = nextEvent(t, s, EventTrackFailed)
	assert.Equal(t, "broken", ev.Track.Title)

	st := h.tr.next(t)
	assert.Equal(t, "loc-ok", st.locator)
	waitState(t, s, StatePlaying)

	_, _, opened := h.tr.stats()
	assert.Equal(t, []string{"loc-broken", "loc-ok"}, opened)
}

func TestStreamErrorAdvances(t *testing.T) {
	h := newHarness()
	s := NewSession("g1", "vc", "tc", h.cfg)
	defer s.Stop()

	require.NoError(t, s.Enqueue(track("a"), track("b")))
	a := h.tr.next(t)
	a.end <- errors.New("connection reset")

	assert.Equal(t, "a", nextEvent(t, s, EventTrackFailed).Track.ID)
	assert.Equal(t, "loc-b", h.tr.next(t).locator)
}

func TestStaleLocatorIsRefreshed(t *testing.T) {
	h := newHarness()
	var refreshed []string
	h.cfg.Refresher = refreshFunc(func(ctx context.Context, tr sources.Track) (sources.Track, error) {
		refreshed = append(refreshed, tr.ID)
		tr.AudioLocator = "fresh-" + tr.ID
		return tr, nil
	})

	s := NewSession("g1", "vc", "tc", h.cfg)
	defer s.Stop()

	stale := track("old")
	stale.ResolvedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, s.Enqueue(stale))

	assert.Equal(t, "fresh-old", h.tr.next(t).locator)
	waitState(t, s, StatePlaying)
	assert.Equal(t, []string{"old"}, refreshed)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "fresh-old", cur.AudioLocator)
}

func TestStopClearsEverything(t *testing.T) {
	h := newHarness()
	s := NewSession("g1", "vc", "tc", h.cfg)

	require.NoError(t, s.Enqueue(track("a"), track("b"), track("c")))
	a := h.tr.next(t)
	waitState(t, s, StatePlaying)

	s.Stop()

	assert.Equal(t, StateTerminated, s.State())
	assert.Empty(t, s.Queue())
	_, ok := s.Current()
	assert.False(t, ok)
	assert.True(t, a.closed.Load())
	assert.Equal(t, int32(1), h.voice.conn("g1").destroyed.Load())
	assert.Error(t, s.Context().Err())

	ev := nextEvent(t, s, EventStopped)
	assert.Equal(t, "a", ev.Track.ID)
	_, open := <-s.Events()
	assert.False(t, open)

	assert.ErrorIs(t, s.Enqueue(track("d")), ErrTerminated)
	_, err := s.Skip()
	assert.ErrorIs(t, err, ErrTerminated)

	s.Stop()
	openCount, _, _ := h.tr.stats()
	assert.Equal(t, 0, openCount)
}

func TestStopCancelsPendingRefresh(t *testing.T) {
	h := newHarness()
	started := make(chan struct{})
	cancelled := make(chan struct{})
	h.cfg.Refresher = refreshFunc(func(ctx context.Context, tr sources.Track) (sources.Track, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return sources.Track{}, ctx.Err()
	})

	s := NewSession("g1", "vc", "tc", h.cfg)
	require.NoError(t, s.Enqueue(sources.Track{Title: "unresolved"}))
	<-started
	assert.Equal(t, StateBuffering, s.State())

	s.Stop()

	select {
	case <-cancelled:
	case <-time.After(waitFor):
		t.Fatal("refresh was not cancelled")
	}
	_, _, opened := h.tr.stats()
	assert.Empty(t, opened)
}

func TestVoiceFailureDropsQueue(t *testing.T) {
	h := newHarness()
	h.voice.err = errors.New("missing permissions")
	s := NewSession("g1", "vc", "tc", h.cfg)
	defer s.Stop()

	require.NoError(t, s.Enqueue(track("a"), track("b")))

	ev := nextEvent(t, s, EventTrackFailed)
	assert.ErrorIs(t, ev.Err, ErrVoiceUnavailable)
	waitState(t, s, StateIdle)
	assert.Empty(t, s.Queue())
}

func TestConcurrentEnqueueAndSkipKeepOneStream(t *testing.T) {
	h := newHarness()
	s := NewSession("g1", "vc", "tc", h.cfg)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = s.Enqueue(track("t"))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, _ = s.Skip()
			}
		}()
	}
	wg.Wait()
	s.Stop()

	open, maxOpen, opened := h.tr.stats()
	assert.NotEmpty(t, opened)
	assert.Equal(t, 1, maxOpen)
	assert.Equal(t, 0, open)
}

func TestSnapshot(t *testing.T) {
	h := newHarness()
	s := NewSession("g1", "vc", "tc", h.cfg)
	defer s.Stop()

	require.NoError(t, s.Enqueue(track("a"), track("b")))
	h.tr.next(t)
	waitState(t, s, StatePlaying)

	snap := s.Snapshot()
	assert.Equal(t, "g1", snap.GuildID)
	assert.Equal(t, s.ID, snap.SessionID)
	assert.Equal(t, "playing", snap.State)
	assert.Equal(t, 1, snap.QueueLength)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "a", snap.Current.ID)
}

func TestFailuresSurviveFullEventChannel(t *testing.T) {
	h := newHarness()
	h.cfg.EventBuffer = 2
	broken := []string{"b1", "b2", "b3", "b4", "b5"}
	for _, id := range broken {
		h.tr.failing["loc-"+id] = errors.New("ffmpeg exited")
	}

	s := NewSession("g1", "vc", "tc", h.cfg)
	defer s.Stop()

	var queue []sources.Track
	for _, id := range broken {
		queue = append(queue, track(id))
	}
	require.NoError(t, s.Enqueue(append(queue, track("ok"))...))

	// nothing reads until the last track is playing
	st := h.tr.next(t)
	assert.Equal(t, "loc-ok", st.locator)
	waitState(t, s, StatePlaying)

	var failed []string
	collect := func(ev Event) {
		if ev.Type == EventTrackFailed {
			failed = append(failed, ev.Track.ID)
		}
	}
	// the buffered failures; now_playing found the channel full
	collect(<-s.Events())
	collect(<-s.Events())

	st.end <- nil
	for {
		ev := <-s.Events()
		for _, m := range ev.Missed {
			collect(m)
		}
		collect(ev)
		if ev.Type == EventQueueEmpty {
			break
		}
	}
	assert.Equal(t, broken, failed)
}

func TestConnectedFollowsVoiceConnection(t *testing.T) {
	h := newHarness()
	s := NewSession("g1", "vc", "tc", h.cfg)
	assert.False(t, s.Connected())

	require.NoError(t, s.Enqueue(track("a")))
	h.tr.next(t)
	waitState(t, s, StatePlaying)
	assert.True(t, s.Connected())

	s.Stop()
	assert.False(t, s.Connected())
}
