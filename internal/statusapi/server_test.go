package statusapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/sources"
)

type staticSessions []player.Snapshot

func (s staticSessions) Snapshot() []player.Snapshot { return s }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheck(t *testing.T) {
	rr := get(t, New(staticSessions(nil)).Handler(), "/health")

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListSessions(t *testing.T) {
	h := New(staticSessions{
		{GuildID: "g1", SessionID: "s1", State: "playing", QueueLength: 2, Current: &sources.Track{Title: "Song"}},
		{GuildID: "g2", SessionID: "s2", State: "idle"},
	}).Handler()

	rr := get(t, h, "/sessions")
	require.Equal(t, http.StatusOK, rr.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "g1", got[0]["guild_id"])
	assert.Equal(t, "playing", got[0]["state"])
	assert.EqualValues(t, 2, got[0]["queue_length"])
	assert.Equal(t, "Song", got[0]["current"].(map[string]any)["title"])
	assert.NotContains(t, got[1], "current")
}

func TestListSessionsEmpty(t *testing.T) {
	rr := get(t, New(staticSessions(nil)).Handler(), "/sessions")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestGetSession(t *testing.T) {
	h := New(staticSessions{{GuildID: "g1", SessionID: "s1", State: "buffering"}}).Handler()

	rr := get(t, h, "/sessions/g1")
	require.Equal(t, http.StatusOK, rr.Code)
	var snap player.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, "s1", snap.SessionID)
	assert.Equal(t, "buffering", snap.State)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/sessions/nope").Code)
}
