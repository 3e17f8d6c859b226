package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/hraban/opus.v2"

	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/sources"
)

const (
	channels      = 2
	sampleRate    = 48000
	frameSize     = 960 // 20ms at 48kHz
	maxPacketSize = 4000

	DefaultBitrate = 96000
)

// Transcoder pipes an audio locator through ffmpeg and encodes the PCM
// output into opus packets ready for a Discord voice connection.
type Transcoder struct {
	Binary  string
	Bitrate int
}

func NewTranscoder(binary string, bitrate int) *Transcoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	if bitrate <= 0 {
		bitrate = DefaultBitrate
	}
	return &Transcoder{Binary: binary, Bitrate: bitrate}
}

// Args returns the ffmpeg arguments used for locator.
func (t *Transcoder) Args(locator string) []string {
	return []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", locator,
		"-analyzeduration", "0",
		"-loglevel", "warning",
		"-map", "a",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"pipe:1",
	}
}

// Open starts ffmpeg for locator. The process dies with ctx; the caller
// owns the returned stream and must Close it.
func (t *Transcoder) Open(ctx context.Context, locator string) (player.AudioStream, error) {
	if locator == "" {
		return nil, sources.NewResolveError(sources.KindNoAudioSource, errors.New("empty audio locator"))
	}

	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	if err := enc.SetBitrate(t.Bitrate); err != nil {
		return nil, fmt.Errorf("opus bitrate: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.Binary, t.Args(locator)...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("command start error: %w", err)
	}
	log.Debug().Int("pid", cmd.Process.Pid).Msg("ffmpeg started")

	kill := func() {
		_ = cmd.Process.Kill()
	}
	wait := func() error {
		err := cmd.Wait()
		if err == nil || ctx.Err() != nil {
			return nil
		}
		msg := lastLine(stderr.String())
		if msg == "" {
			return fmt.Errorf("ffmpeg: %w", err)
		}
		return sources.NewResolveError(sources.ClassifyMessage(msg), fmt.Errorf("ffmpeg: %w: %s", err, msg))
	}

	return newTrackStream(stdout, enc, kill, wait), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
