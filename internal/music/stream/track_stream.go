package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

type encoder interface {
	Encode(pcm []int16, data []byte) (int, error)
}

// TrackStream yields one opus packet per 20ms PCM frame read from ffmpeg.
type TrackStream struct {
	pcm  io.Reader
	enc  encoder
	kill func()
	wait func() error

	pcmBuf []byte
	intBuf []int16
	packet []byte
	frames int

	closeOnce sync.Once
}

func newTrackStream(pcm io.Reader, enc encoder, kill func(), wait func() error) *TrackStream {
	return &TrackStream{
		pcm:    pcm,
		enc:    enc,
		kill:   kill,
		wait:   sync.OnceValue(wait),
		pcmBuf: make([]byte, frameSize*channels*2),
		intBuf: make([]int16, frameSize*channels),
		packet: make([]byte, maxPacketSize),
	}
}

// ReadFrame returns the next opus packet. io.EOF means the input ended
// cleanly. A trailing partial frame is dropped.
func (s *TrackStream) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(s.pcm, s.pcmBuf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if werr := s.wait(); werr != nil {
				return nil, werr
			}
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read error: %w", err)
	}

	for i := range s.intBuf {
		s.intBuf[i] = int16(binary.LittleEndian.Uint16(s.pcmBuf[i*2 : i*2+2]))
	}

	n, err := s.enc.Encode(s.intBuf, s.packet)
	if err != nil {
		return nil, fmt.Errorf("encode error: %w", err)
	}
	s.frames++

	out := make([]byte, n)
	copy(out, s.packet[:n])
	return out, nil
}

// Frames is the number of packets produced so far.
func (s *TrackStream) Frames() int { return s.frames }

// Close kills the process if it is still running and reaps it.
func (s *TrackStream) Close() error {
	s.closeOnce.Do(func() {
		if s.kill != nil {
			s.kill()
		}
		_ = s.wait()
	})
	return nil
}
