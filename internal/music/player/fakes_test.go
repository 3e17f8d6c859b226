package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/jukebox/internal/music/sources"
)

type fakeStream struct {
	locator string
	end     chan error
	closed  atomic.Bool
	owner   *fakeTranscoder
}

func (s *fakeStream) ReadFrame() ([]byte, error) {
	return nil, errors.New("fake stream is driven by fakeConn")
}

func (s *fakeStream) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.owner.mu.Lock()
		s.owner.open--
		s.owner.mu.Unlock()
	}
	return nil
}

type fakeTranscoder struct {
	mu      sync.Mutex
	open    int
	maxOpen int
	opened  []string
	failing map[string]error
	streams chan *fakeStream
}

func newFakeTranscoder() *fakeTranscoder {
	return &fakeTranscoder{
		failing: map[string]error{},
		streams: make(chan *fakeStream, 1024),
	}
}

func (f *fakeTranscoder) Open(ctx context.Context, locator string) (AudioStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.opened = append(f.opened, locator)
	if err := f.failing[locator]; err != nil {
		return nil, err
	}

	f.open++
	f.maxOpen = max(f.maxOpen, f.open)
	st := &fakeStream{locator: locator, end: make(chan error, 1), owner: f}
	f.streams <- st
	return st, nil
}

func (f *fakeTranscoder) stats() (open, maxOpen int, opened []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open, f.maxOpen, append([]string(nil), f.opened...)
}

func (f *fakeTranscoder) next(t *testing.T) *fakeStream {
	t.Helper()
	select {
	case st := <-f.streams:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("no stream opened")
		return nil
	}
}

type fakeConn struct {
	destroyed atomic.Int32
}

func (c *fakeConn) Submit(ctx context.Context, s AudioStream) error {
	st := s.(*fakeStream)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-st.end:
		return err
	}
}

func (c *fakeConn) Destroy() error {
	c.destroyed.Add(1)
	return nil
}

type fakeTransport struct {
	mu    sync.Mutex
	conns map[string]*fakeConn
	joins int
	err   error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{conns: map[string]*fakeConn{}}
}

func (f *fakeTransport) JoinOrGet(guildID, channelID string) (VoiceConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.joins++
	c, ok := f.conns[guildID]
	if !ok {
		c = &fakeConn{}
		f.conns[guildID] = c
	}
	return c, nil
}

func (f *fakeTransport) conn(guildID string) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[guildID]
}

type refreshFunc func(ctx context.Context, t sources.Track) (sources.Track, error)

func (f refreshFunc) Refresh(ctx context.Context, t sources.Track) (sources.Track, error) {
	return f(ctx, t)
}

type harness struct {
	tr    *fakeTranscoder
	voice *fakeTransport
	cfg   Config
}

func newHarness() *harness {
	h := &harness{tr: newFakeTranscoder(), voice: newFakeTransport()}
	h.cfg = Config{
		Transcoder: h.tr,
		Voice:      h.voice,
		LocatorTTL: time.Hour,
		Logger:     zerolog.Nop(),
	}
	return h
}

func track(name string) sources.Track {
	return sources.Track{Title: name, ID: name, URL: "https://example.com/" + name, AudioLocator: "loc-" + name}
}
