package soundcloud

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/jukebox/internal/music/sources"
)

const resultsPage = `<html><body>
<div class="result"><a class="result__url" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fsoundcloud.com%2Fartist">soundcloud.com/artist</a></div>
<div class="result"><a class="result__url" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fsoundcloud.com%2Fartist%2Fsets%2Fmix">soundcloud.com/artist/sets/mix</a></div>
<div class="result"><a class="result__url" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fsoundcloud.com%2Fartist%2Fcool-track">soundcloud.com/artist/cool-track</a></div>
</body></html>`

func TestFirstTrackURL(t *testing.T) {
	got, err := firstTrackURL(strings.NewReader(resultsPage))
	require.NoError(t, err)
	assert.Equal(t, "https://soundcloud.com/artist/cool-track", got)
}

func TestFirstTrackURLNoMatch(t *testing.T) {
	_, err := firstTrackURL(strings.NewReader(`<html><body><p>nothing</p></body></html>`))
	assert.ErrorIs(t, err, sources.ErrVideoNotFound)
}

func TestSearchFirstTrackURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("q"), "site:soundcloud.com")
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	r := NewSoundCloudResolver()
	r.SearchURL = srv.URL

	got, err := r.SearchFirstTrackURL(context.Background(), "cool track")
	require.NoError(t, err)
	assert.Equal(t, "https://soundcloud.com/artist/cool-track", got)
}

func TestSearchFirstTrackURLBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewSoundCloudResolver()
	r.SearchURL = srv.URL

	_, err := r.SearchFirstTrackURL(context.Background(), "x")
	assert.Error(t, err)
}
