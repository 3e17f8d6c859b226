package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/k0kubun/go-ansi"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/keshon/jukebox/internal/logging"
	"github.com/keshon/jukebox/internal/music/parsers/kkdai"
	"github.com/keshon/jukebox/internal/music/parsers/ytdlp"
	"github.com/keshon/jukebox/internal/music/parsers/ytplaylist"
	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/internal/music/sources/radio"
	"github.com/keshon/jukebox/internal/music/sources/soundcloud"
	"github.com/keshon/jukebox/internal/music/sources/web"
	"github.com/keshon/jukebox/internal/music/sources/youtube"
	"github.com/keshon/jukebox/pkg/util"
)

func main() {
	query := flag.String("q", "", "link or search query")
	source := flag.String("source", "", "source for search queries: youtube, soundcloud, radio")
	parser := flag.String("parser", "", "parser override: ytdlp, kkdai")
	resolve := flag.Bool("resolve", false, "resolve the audio locator of every playlist entry")
	workers := flag.Int("workers", 4, "parallel resolutions with -resolve")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Parse()

	_ = godotenv.Load()
	logging.Setup(envOr("LOG_LEVEL", "warn"), "")

	if *query == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	ytdlpClient := ytdlp.New(envOr("YTDLP_PATH", "yt-dlp"))
	resolver := source_resolver.New(
		youtube.New(ytdlpClient, kkdai.New(os.Getenv("YOUTUBE_PROXY")), ytplaylist.New()),
		soundcloud.New(ytdlpClient),
		radio.New(),
		web.New(ytdlpClient),
	)

	fmt.Printf("%s: %s\n", *query, source_resolver.Classify(*query))

	res, err := resolver.Resolve(ctx, *query, *source, *parser)
	if err != nil {
		log.Error().Err(err).Msg("resolve failed")
		fmt.Fprintln(os.Stderr, sources.UserMessage(err))
		os.Exit(1)
	}

	if res.PlaylistTitle != "" {
		fmt.Printf("playlist: %s (%d tracks)\n", res.PlaylistTitle, len(res.Tracks))
	}

	tracks := res.Tracks
	if *resolve && res.Kind == source_resolver.QueryPlaylist {
		tracks = resolveAll(ctx, resolver, tracks, *workers)
	}

	for i, t := range tracks {
		fmt.Printf("%3d. [%s] %s\n     %s\n", i+1, t.Source, t.DisplayTitle(), t.URL)
		if t.AudioLocator != "" {
			fmt.Printf("     locator: %.80s\n", t.AudioLocator)
		}
	}
}

// resolveAll refreshes every entry in place. Failed entries keep an empty
// locator and are reported after the bar finishes.
func resolveAll(ctx context.Context, r *source_resolver.SourceResolver, tracks []sources.Track, workers int) []sources.Track {
	bar := progressbar.NewOptions(
		len(tracks),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Resolving tracks...[reset]"),
	)

	type job struct {
		idx   int
		track sources.Track
	}
	jobs := make([]job, len(tracks))
	for i, t := range tracks {
		jobs[i] = job{idx: i, track: t}
	}

	out := make([]sources.Track, len(tracks))
	copy(out, tracks)

	var (
		mu     sync.Mutex
		failed []string
	)
	err := util.Parallel(ctx, jobs, workers, func(ctx context.Context, j job) error {
		fresh, err := r.Refresh(ctx, j.track)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %s", j.track.DisplayTitle(), sources.UserMessage(err)))
		} else {
			out[j.idx] = fresh
		}
		_ = bar.Add(1)
		return nil
	})
	_ = bar.Finish()
	fmt.Println()

	if err != nil {
		log.Warn().Err(err).Msg("resolution interrupted")
	}
	for _, f := range failed {
		fmt.Fprintln(os.Stderr, "failed:", f)
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
