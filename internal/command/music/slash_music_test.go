package music

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/config"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/internal/music/sources"
)

type reply struct {
	embed     *discordgo.MessageEmbed
	ephemeral bool
	followup  bool
}

type fakeResponder struct {
	mu      sync.Mutex
	replies []reply
	defers  int
}

func (f *fakeResponder) Respond(e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply{embed: embed, ephemeral: ephemeral})
	return nil
}

func (f *fakeResponder) Defer(e *discordgo.InteractionCreate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defers++
	return nil
}

func (f *fakeResponder) Followup(e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply{embed: embed, ephemeral: ephemeral, followup: true})
	return nil
}

func (f *fakeResponder) EmbedColor() int { return 0x123456 }

func (f *fakeResponder) all() []reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reply(nil), f.replies...)
}

func (f *fakeResponder) waitReply(t *testing.T) reply {
	t.Helper()
	require.Eventually(t, func() bool { return len(f.all()) > 0 }, 2*time.Second, time.Millisecond)
	return f.all()[0]
}

type fakeVoice struct {
	channel string
	allowed bool
}

func (f fakeVoice) UserVoiceChannel(guildID, userID string) (string, error) {
	if f.channel == "" {
		return "", errors.New("not in voice")
	}
	return f.channel, nil
}

func (f fakeVoice) CanJoinAndSpeak(channelID string) bool { return f.allowed }

type resolveFunc func(ctx context.Context, input, source, parser string) (*source_resolver.Result, error)

func (f resolveFunc) Resolve(ctx context.Context, input, source, parser string) (*source_resolver.Result, error) {
	return f(ctx, input, source, parser)
}

// idleStream never yields audio, so a playing track holds until cancelled.
type idleStream struct{}

func (idleStream) ReadFrame() ([]byte, error) { return nil, errors.New("unused") }
func (idleStream) Close() error               { return nil }

type idleTranscoder struct{}

func (idleTranscoder) Open(ctx context.Context, locator string) (player.AudioStream, error) {
	return idleStream{}, nil
}

type idleConn struct{}

func (idleConn) Submit(ctx context.Context, s player.AudioStream) error {
	<-ctx.Done()
	return ctx.Err()
}

func (idleConn) Destroy() error { return nil }

type idleTransport struct{}

func (idleTransport) JoinOrGet(guildID, channelID string) (player.VoiceConn, error) {
	return idleConn{}, nil
}

func newCommand(t *testing.T, resolve resolveFunc) *MusicCommand {
	reg := player.NewRegistry(player.Config{
		Transcoder: idleTranscoder{},
		Voice:      idleTransport{},
		Logger:     zerolog.Nop(),
	})
	t.Cleanup(reg.Shutdown)

	return &MusicCommand{
		Voice:          fakeVoice{channel: "vc1", allowed: true},
		Resolver:       resolve,
		Sessions:       reg,
		Presets:        config.Presets{"chill": {"lofi beats"}},
		ResolveTimeout: time.Second,
	}
}

func invoke(t *testing.T, c *MusicCommand, sub string, opts map[string]string) *fakeResponder {
	t.Helper()

	var subOpts []*discordgo.ApplicationCommandInteractionDataOption
	for name, value := range opts {
		subOpts = append(subOpts, &discordgo.ApplicationCommandInteractionDataOption{
			Name:  name,
			Type:  discordgo.ApplicationCommandOptionString,
			Value: value,
		})
	}

	e := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g1",
		ChannelID: "tc1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "u1", Username: "dj"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "music",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name:    sub,
				Type:    discordgo.ApplicationCommandOptionSubCommand,
				Options: subOpts,
			}},
		},
	}}

	r := &fakeResponder{}
	inv := &command.Invocation{Data: &command.SlashInteractionContext{Event: e, Responder: r}}
	require.NoError(t, c.Run(context.Background(), inv))
	return r
}

func oneTrack(title string) *source_resolver.Result {
	return &source_resolver.Result{
		Kind: source_resolver.QuerySearch,
		Tracks: []sources.Track{{
			Title:        title,
			URL:          "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			Source:       sources.SourceYouTube,
			AudioLocator: "loc",
		}},
	}
}

func TestPlayRequiresVoiceChannel(t *testing.T) {
	called := false
	c := newCommand(t, func(ctx context.Context, input, source, parser string) (*source_resolver.Result, error) {
		called = true
		return nil, nil
	})
	c.Voice = fakeVoice{}

	r := invoke(t, c, "play", map[string]string{"input": "lofi"})

	replies := r.all()
	require.Len(t, replies, 1)
	assert.Equal(t, msgNotInVoice, replies[0].embed.Description)
	assert.True(t, replies[0].ephemeral)
	assert.Zero(t, r.defers)
	assert.False(t, called)
	assert.Zero(t, c.Sessions.Len())
}

func TestPlayRequiresVoicePermissions(t *testing.T) {
	c := newCommand(t, nil)
	c.Voice = fakeVoice{channel: "vc1"}

	r := invoke(t, c, "play", map[string]string{"input": "lofi"})

	replies := r.all()
	require.Len(t, replies, 1)
	assert.Equal(t, msgNoPermissions, replies[0].embed.Description)
	assert.Zero(t, c.Sessions.Len())
}

func TestPlayQueuesTrack(t *testing.T) {
	var got []string
	c := newCommand(t, func(ctx context.Context, input, source, parser string) (*source_resolver.Result, error) {
		got = []string{input, source, parser}
		return oneTrack("Song"), nil
	})
	var created []*player.Session
	c.OnSessionCreated = func(s *player.Session) { created = append(created, s) }

	r := invoke(t, c, "play", map[string]string{"input": "song", "source": "youtube", "parser": "kkdai"})

	rep := r.waitReply(t)
	assert.True(t, rep.followup)
	assert.False(t, rep.ephemeral)
	assert.Equal(t, "🎶 Added to queue", rep.embed.Title)
	assert.Contains(t, rep.embed.Description, "[Song](https://www.youtube.com/watch?v=dQw4w9WgXcQ)")
	require.NotNil(t, rep.embed.Thumbnail)
	assert.Contains(t, rep.embed.Thumbnail.URL, "dQw4w9WgXcQ")
	assert.Equal(t, []string{"song", "youtube", "kkdai"}, got)
	assert.Equal(t, 1, r.defers)

	require.Len(t, created, 1)
	sess, ok := c.Sessions.Get("g1")
	require.True(t, ok)
	assert.Same(t, created[0], sess)
	assert.Equal(t, "vc1", sess.VoiceChannelID)
	assert.Equal(t, "tc1", sess.TextChannelID)
	require.Eventually(t, func() bool {
		cur, ok := sess.Current()
		return ok && cur.Title == "Song"
	}, 2*time.Second, time.Millisecond)
}

func TestPlayPlaylist(t *testing.T) {
	c := newCommand(t, func(ctx context.Context, input, source, parser string) (*source_resolver.Result, error) {
		return &source_resolver.Result{
			Kind:          source_resolver.QueryPlaylist,
			PlaylistTitle: "Mix",
			Tracks:        []sources.Track{{Title: "a"}, {Title: "b"}, {Title: "c"}},
		}, nil
	})

	r := invoke(t, c, "play", map[string]string{"input": "https://www.youtube.com/playlist?list=PL1"})

	rep := r.waitReply(t)
	assert.Equal(t, "🎶 Playlist added to queue", rep.embed.Title)
	assert.Contains(t, rep.embed.Description, "**Mix**")
	assert.Contains(t, rep.embed.Description, "3 tracks")
}

func TestPlayReportsResolveFailure(t *testing.T) {
	c := newCommand(t, func(ctx context.Context, input, source, parser string) (*source_resolver.Result, error) {
		return nil, fmt.Errorf("resolve track: %w", sources.ErrPrivateVideo)
	})

	r := invoke(t, c, "play", map[string]string{"input": "https://youtu.be/x"})

	rep := r.waitReply(t)
	assert.True(t, rep.ephemeral)
	assert.Equal(t, sources.UserMessage(sources.ErrPrivateVideo), rep.embed.Description)

	sess, ok := c.Sessions.Get("g1")
	require.True(t, ok)
	assert.Empty(t, sess.Queue())
}

func TestPlayWithNoResultsReportsNotFound(t *testing.T) {
	c := newCommand(t, func(ctx context.Context, input, source, parser string) (*source_resolver.Result, error) {
		return &source_resolver.Result{Kind: source_resolver.QuerySearch}, nil
	})

	r := invoke(t, c, "play", map[string]string{"input": "nothing"})

	assert.Equal(t, sources.UserMessage(sources.ErrVideoNotFound), r.waitReply(t).embed.Description)
}

func TestStopAbandonsPendingResolve(t *testing.T) {
	started := make(chan struct{})
	c := newCommand(t, func(ctx context.Context, input, source, parser string) (*source_resolver.Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c.ResolveTimeout = time.Minute

	play := invoke(t, c, "play", map[string]string{"input": "slow"})
	<-started

	stop := invoke(t, c, "stop", nil)
	assert.Equal(t, msgStopped, stop.waitReply(t).embed.Description)

	rep := play.waitReply(t)
	assert.Equal(t, msgStoppedEarly, rep.embed.Description)
	assert.Zero(t, c.Sessions.Len())
}

func TestResolveTimeout(t *testing.T) {
	c := newCommand(t, func(ctx context.Context, input, source, parser string) (*source_resolver.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c.ResolveTimeout = 10 * time.Millisecond

	r := invoke(t, c, "play", map[string]string{"input": "slow"})

	assert.Equal(t, msgResolveTimeout, r.waitReply(t).embed.Description)
}

func TestSkipWithoutPlayback(t *testing.T) {
	c := newCommand(t, nil)

	r := invoke(t, c, "skip", nil)
	assert.Equal(t, msgNothingToSkip, r.waitReply(t).embed.Description)

	c.Sessions.GetOrCreate("g1", "vc1", "tc1")
	r = invoke(t, c, "skip", nil)
	assert.Equal(t, msgNothingToSkip, r.waitReply(t).embed.Description)
}

func TestSkipCurrentTrack(t *testing.T) {
	c := newCommand(t, nil)
	sess, _ := c.Sessions.GetOrCreate("g1", "vc1", "tc1")
	require.NoError(t, sess.Enqueue(oneTrack("First").Tracks...))
	require.Eventually(t, func() bool { return sess.State() == player.StatePlaying }, 2*time.Second, time.Millisecond)

	r := invoke(t, c, "skip", nil)

	assert.True(t, strings.HasPrefix(r.waitReply(t).embed.Description, "⏭️ Skipped [First]"))
}

func TestQueueSubcommand(t *testing.T) {
	c := newCommand(t, nil)

	r := invoke(t, c, "queue", nil)
	assert.Equal(t, msgQueueEmpty, r.waitReply(t).embed.Description)

	sess, _ := c.Sessions.GetOrCreate("g1", "vc1", "tc1")
	require.NoError(t, sess.Enqueue(
		sources.Track{Title: "a", AudioLocator: "la"},
		sources.Track{Title: "b", AudioLocator: "lb"},
	))
	require.Eventually(t, func() bool { return sess.State() == player.StatePlaying }, 2*time.Second, time.Millisecond)

	r = invoke(t, c, "queue", nil)
	desc := r.waitReply(t).embed.Description
	assert.Contains(t, desc, "**Now playing:** a")
	assert.Contains(t, desc, "1. b")
}

func TestQueueEmbedTruncates(t *testing.T) {
	queue := make([]sources.Track, 13)
	for i := range queue {
		queue[i] = sources.Track{Title: fmt.Sprintf("t%d", i)}
	}

	embed := queueEmbed(&fakeResponder{}, sources.Track{}, false, queue)

	assert.NotContains(t, embed.Description, "Now playing")
	assert.Contains(t, embed.Description, "10. t9")
	assert.NotContains(t, embed.Description, "t10")
	assert.Contains(t, embed.Description, "...and 3 more")
}

func TestPresetPlaysFromList(t *testing.T) {
	inputs := make(chan string, 1)
	c := newCommand(t, func(ctx context.Context, input, source, parser string) (*source_resolver.Result, error) {
		inputs <- input
		return oneTrack("Lofi"), nil
	})

	r := invoke(t, c, "preset", map[string]string{"name": "chill"})
	r.waitReply(t)
	assert.Equal(t, "lofi beats", <-inputs)

	r = invoke(t, c, "preset", map[string]string{"name": "metal"})
	rep := r.waitReply(t)
	assert.True(t, rep.ephemeral)
	assert.Contains(t, rep.embed.Description, "Unknown preset")
}

func TestSlashDefinition(t *testing.T) {
	c := newCommand(t, nil)
	def := c.SlashDefinition()

	var names []string
	for _, o := range def.Options {
		names = append(names, o.Name)
	}
	assert.Equal(t, []string{"play", "skip", "stop", "queue", "preset"}, names)

	preset := def.Options[4].Options[0]
	require.Len(t, preset.Choices, 1)
	assert.Equal(t, "chill", preset.Choices[0].Value)
}
