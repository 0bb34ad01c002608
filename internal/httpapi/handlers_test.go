package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftarena/rift-backend/internal/catalog"
	"github.com/riftarena/rift-backend/internal/draft"
	"github.com/riftarena/rift-backend/internal/engine"
	"github.com/riftarena/rift-backend/internal/hub"
	"github.com/riftarena/rift-backend/internal/match"
	"github.com/riftarena/rift-backend/internal/metrics"
	"github.com/riftarena/rift-backend/internal/profile"
	"github.com/riftarena/rift-backend/internal/queue"
	"github.com/riftarena/rift-backend/internal/store"
)

func testServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	st := store.NewMemory()
	log := zap.NewNop()
	rec := metrics.Noop{}

	selections := make(catalog.Static, 0, 200)
	for i := 1; i <= 200; i++ {
		selections = append(selections, catalog.Selection{ID: i, Name: fmt.Sprintf("sel-%d", i)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx)

	drafts := draft.NewService(st, selections, h, rec, log)
	queues := queue.NewService(st, profile.Static{}, rec, log, 0) // 0 phase limit: clock elapsed immediately
	matches := match.NewService(st, profile.Static{}, rec, log)

	api := &API{Queue: queues, Drafts: drafts, Matches: matches, Log: log}
	srv := httptest.NewServer(SetupRoutes(api, h, prometheus.NewRegistry()))
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, player string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if player != "" {
		req.Header.Set("X-Player-ID", player)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type joinResponse struct {
	Queued     bool   `json:"queued"`
	MatchFound bool   `json:"match_found"`
	DraftID    string `json:"draft_id"`
}

// fillQueue joins two players per role and returns the draft id formed by the
// tenth join, plus the ten player ids.
func fillQueue(t *testing.T, srv *httptest.Server) (string, []string) {
	t.Helper()

	var players []string
	var draftID string
	for round := 0; round < 2; round++ {
		for _, role := range engine.RoleOrder {
			id := fmt.Sprintf("p-%s-%d", role, round)
			players = append(players, id)
			resp := doJSON(t, srv, http.MethodPost, "/queue/join", id, map[string]any{"role": role, "region": "euw"})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			res := decode[joinResponse](t, resp)
			if res.MatchFound {
				draftID = res.DraftID
			}
		}
	}
	require.NotEmpty(t, draftID, "ten compatible players should form a match")
	return draftID, players
}

func TestQueueEndpoints(t *testing.T) {
	srv, _ := testServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/queue/join", "", map[string]any{"role": "mid"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/queue/join", "alice", map[string]any{"role": "goalkeeper"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/queue/join", "alice", map[string]any{"role": "mid", "region": "euw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	join := decode[joinResponse](t, resp)
	assert.True(t, join.Queued)
	assert.False(t, join.MatchFound)

	// Second join for the same player conflicts.
	resp = doJSON(t, srv, http.MethodPost, "/queue/join", "alice", map[string]any{"role": "top"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodGet, "/queue/status", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[struct {
		InQueue      bool           `json:"in_queue"`
		TotalWaiting int            `json:"total_waiting"`
		PerRole      map[string]int `json:"per_role"`
	}](t, resp)
	assert.True(t, status.InQueue)
	assert.Equal(t, 1, status.TotalWaiting)
	assert.Equal(t, 1, status.PerRole["mid"])
	assert.Equal(t, 0, status.PerRole["adc"])

	resp = doJSON(t, srv, http.MethodPost, "/queue/leave", "alice", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/queue/leave", "alice", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestDraftEndpoints(t *testing.T) {
	srv, _ := testServer(t)
	draftID, players := fillQueue(t, srv)

	resp := doJSON(t, srv, http.MethodGet, "/drafts/"+draftID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decode[engine.Session](t, resp)
	assert.Equal(t, engine.StatusWaiting, session.Status)
	assert.Len(t, session.Players, 10)

	resp = doJSON(t, srv, http.MethodGet, "/drafts/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Outsiders cannot ready up.
	resp = doJSON(t, srv, http.MethodPost, "/drafts/"+draftID+"/ready", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	var started bool
	for _, p := range players {
		resp = doJSON(t, srv, http.MethodPost, "/drafts/"+draftID+"/ready", p, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		ready := decode[struct {
			Started bool           `json:"started"`
			State   engine.Session `json:"state"`
		}](t, resp)
		started = ready.Started
	}
	assert.True(t, started, "tenth ready should start the draft")

	resp = doJSON(t, srv, http.MethodGet, "/drafts/"+draftID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session = decode[engine.Session](t, resp)
	require.Equal(t, engine.StatusBanning, session.Status)

	// First action belongs to blue; find a blue player and ban.
	var bluePlayer, redPlayer string
	for _, p := range session.Players {
		if p.Team == engine.TeamBlue && bluePlayer == "" {
			bluePlayer = p.ID
		}
		if p.Team == engine.TeamRed && redPlayer == "" {
			redPlayer = p.ID
		}
	}

	resp = doJSON(t, srv, http.MethodPost, "/drafts/"+draftID+"/actions", redPlayer, map[string]any{"selection_id": 7})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/drafts/"+draftID+"/actions", bluePlayer, map[string]any{"selection_id": 999})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/drafts/"+draftID+"/actions", bluePlayer, map[string]any{"selection_id": 7})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session = decode[engine.Session](t, resp)
	assert.Equal(t, []int{7}, session.Bans)
	assert.Equal(t, 1, session.Phase)

	// Phase limit is zero in tests, so the clock has already elapsed.
	resp = doJSON(t, srv, http.MethodPost, "/drafts/"+draftID+"/timeout", bluePlayer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session = decode[engine.Session](t, resp)
	assert.Equal(t, engine.StatusCancelled, session.Status)
}

func TestMatchAndRatingEndpoints(t *testing.T) {
	srv, _ := testServer(t)

	stats := map[string]any{"kills": 5, "deaths": 5, "assists": 5, "damage": 10000, "farm": 150, "vision": 20, "objectives": 3}
	team := func(prefix string) []map[string]any {
		out := make([]map[string]any, 0, 5)
		for i, role := range engine.RoleOrder {
			out = append(out, map[string]any{
				"player_id": fmt.Sprintf("%s%d", prefix, i),
				"role":      role,
				"stats":     stats,
			})
		}
		return out
	}

	resp := doJSON(t, srv, http.MethodPost, "/matches", "reporter", map[string]any{
		"winner": "purple", "blue": team("b"), "red": team("r"),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/matches", "reporter", map[string]any{
		"winner": "blue", "blue": team("b"), "red": team("r"),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	result := decode[match.Result](t, resp)
	require.Len(t, result.Deltas, 10)
	assert.NotEmpty(t, result.MatchID)

	resp = doJSON(t, srv, http.MethodGet, "/matches/"+result.MatchID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[store.MatchRecord](t, resp)
	assert.Equal(t, engine.TeamBlue, rec.Winner)

	resp = doJSON(t, srv, http.MethodGet, "/ratings/me", "b0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[match.RatingView](t, resp)
	assert.Equal(t, "b0", view.PlayerID)
	assert.Equal(t, 1, view.Wins)
	assert.Greater(t, view.Rating, 1000)

	resp = doJSON(t, srv, http.MethodGet, "/ratings/r0", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[match.RatingView](t, resp)
	assert.Equal(t, 1, view.Losses)
	assert.Less(t, view.Rating, 1000)

	resp = doJSON(t, srv, http.MethodGet, "/ratings/stranger", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodGet, "/leaderboard?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)
	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
