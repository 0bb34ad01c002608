package match

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftarena/rift-backend/internal/engine"
	"github.com/riftarena/rift-backend/internal/metrics"
	"github.com/riftarena/rift-backend/internal/profile"
	"github.com/riftarena/rift-backend/internal/rating"
	"github.com/riftarena/rift-backend/internal/store"
)

var evenStats = rating.Stats{Kills: 5, Deaths: 5, Assists: 5, Damage: 20000, Farm: 180, Vision: 25, Objectives: 3}

func newTestService(profiles profile.Source) (*Service, *store.Memory) {
	st := store.NewMemory()
	if profiles == nil {
		profiles = profile.Static{}
	}
	svc := NewService(st, profiles, metrics.Noop{}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, st
}

func team(prefix string) []PlayerResult {
	results := make([]PlayerResult, 5)
	for i, role := range engine.RoleOrder {
		results[i] = PlayerResult{
			PlayerID: fmt.Sprintf("%s%d", prefix, i),
			Role:     role,
			Stats:    evenStats,
		}
	}
	return results
}

// seedPlaced writes placed rating documents at the given rating for both
// teams, so placement doubling is out of the picture.
func seedPlaced(t *testing.T, st *store.Memory, ratingValue int) {
	t.Helper()
	docs := make([]store.PlayerRating, 0, 10)
	for _, prefix := range []string{"b", "r"} {
		for i := 0; i < 5; i++ {
			id := fmt.Sprintf("%s%d", prefix, i)
			docs = append(docs, store.PlayerRating{
				PlayerID: id, Name: id, Rating: ratingValue, PeakRating: ratingValue,
				Placed: true, PlacementGames: rating.PlacementGames, Games: 20, Wins: 10, Losses: 10,
			})
		}
	}
	require.NoError(t, st.RecordMatch(context.Background(), store.MatchRecord{ID: "seed", Processed: true}, docs))
}

func TestSubmitResult_Validation(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.SubmitResult(ctx, "green", team("b"), team("r"))
	assert.ErrorIs(t, err, ErrBadWinner)

	_, err = svc.SubmitResult(ctx, engine.TeamBlue, team("b")[:4], team("r"))
	assert.ErrorIs(t, err, ErrBadTeamSize)

	dup := team("r")
	dup[0].PlayerID = "b0"
	_, err = svc.SubmitResult(ctx, engine.TeamBlue, team("b"), dup)
	assert.ErrorIs(t, err, ErrDuplicatePlayer)

	bad := team("r")
	bad[2].Stats.Deaths = -1
	_, err = svc.SubmitResult(ctx, engine.TeamBlue, team("b"), bad)
	assert.ErrorIs(t, err, ErrBadStats)
}

func TestSubmitResult_AveragePlayerGetsBaseChange(t *testing.T) {
	svc, st := newTestService(nil)
	ctx := context.Background()
	seedPlaced(t, st, 1000)

	res, err := svc.SubmitResult(ctx, engine.TeamBlue, team("b"), team("r"))
	require.NoError(t, err)
	require.Len(t, res.Deltas, 10)

	for _, d := range res.Deltas {
		assert.InDelta(t, 50.0, d.Score, 1e-9)
		if d.PlayerID[0] == 'b' {
			assert.Equal(t, rating.BaseChange, d.Change, "winner %s", d.PlayerID)
			assert.Equal(t, 1025, d.NewRating)
		} else {
			assert.Equal(t, -rating.BaseChange, d.Change, "loser %s", d.PlayerID)
			assert.Equal(t, 975, d.NewRating)
		}
	}

	// The persisted documents match the reported deltas.
	doc, err := st.GetRating(ctx, "b0")
	require.NoError(t, err)
	assert.Equal(t, 1025, doc.Rating)
	assert.Equal(t, 1025, doc.PeakRating)
	assert.Equal(t, 21, doc.Games)
	assert.Equal(t, 11, doc.Wins)
	require.Len(t, doc.History, 1)
	assert.Equal(t, res.MatchID, doc.History[0].MatchID)
	assert.Equal(t, 1000, doc.History[0].Before)
	assert.Equal(t, 1025, doc.History[0].After)

	rec, err := st.GetMatch(ctx, res.MatchID)
	require.NoError(t, err)
	assert.True(t, rec.Processed)
	assert.Equal(t, engine.TeamBlue, rec.Winner)
	assert.Len(t, rec.Blue.Players, 5)
	assert.Len(t, rec.Red.Players, 5)
	assert.Equal(t, 1000, rec.Blue.AvgRating)
}

func TestSubmitResult_LazySeedAndPlacementDoubling(t *testing.T) {
	svc, st := newTestService(nil)
	ctx := context.Background()

	// No rating documents exist: everyone is seeded at the default 1000 and
	// is inside the placement window, so deltas double.
	res, err := svc.SubmitResult(ctx, engine.TeamRed, team("b"), team("r"))
	require.NoError(t, err)

	for _, d := range res.Deltas {
		if d.PlayerID[0] == 'r' {
			assert.Equal(t, 2*rating.BaseChange, d.Change)
		} else {
			assert.Equal(t, -2*rating.BaseChange, d.Change)
		}
	}

	doc, err := st.GetRating(ctx, "r0")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.PlacementGames)
	assert.False(t, doc.Placed)
	assert.Equal(t, 1, doc.Games)
}

func TestSubmitResult_PlacementFlipsExactlyOnce(t *testing.T) {
	svc, st := newTestService(nil)
	ctx := context.Background()

	docs := make([]store.PlayerRating, 0, 10)
	for _, prefix := range []string{"b", "r"} {
		for i := 0; i < 5; i++ {
			id := fmt.Sprintf("%s%d", prefix, i)
			docs = append(docs, store.PlayerRating{
				PlayerID: id, Name: id, Rating: 1000, PeakRating: 1000,
				PlacementGames: rating.PlacementGames - 1, Games: rating.PlacementGames - 1,
			})
		}
	}
	require.NoError(t, st.RecordMatch(ctx, store.MatchRecord{ID: "seed", Processed: true}, docs))

	_, err := svc.SubmitResult(ctx, engine.TeamBlue, team("b"), team("r"))
	require.NoError(t, err)

	doc, err := st.GetRating(ctx, "b0")
	require.NoError(t, err)
	assert.True(t, doc.Placed, "placed flips at exactly %d games", rating.PlacementGames)
	assert.Equal(t, rating.PlacementGames, doc.PlacementGames)

	// Another match must not move the placement counter or the flag.
	_, err = svc.SubmitResult(ctx, engine.TeamBlue, team("b"), team("r"))
	require.NoError(t, err)
	doc, err = st.GetRating(ctx, "b0")
	require.NoError(t, err)
	assert.True(t, doc.Placed)
	assert.Equal(t, rating.PlacementGames, doc.PlacementGames)
}

func TestSubmitResult_RatingsStayBounded(t *testing.T) {
	svc, st := newTestService(nil)
	ctx := context.Background()
	seedPlaced(t, st, rating.MaxRating-5)

	res, err := svc.SubmitResult(ctx, engine.TeamBlue, team("b"), team("r"))
	require.NoError(t, err)
	for _, d := range res.Deltas {
		assert.LessOrEqual(t, d.NewRating, rating.MaxRating)
		assert.GreaterOrEqual(t, d.NewRating, rating.MinRating)
	}
}

func TestLeaderboard_OrderedPlacedOnly(t *testing.T) {
	svc, st := newTestService(nil)
	ctx := context.Background()

	docs := []store.PlayerRating{
		{PlayerID: "a", Name: "a", Rating: 1400, Placed: true, Games: 10, Wins: 7, Losses: 3},
		{PlayerID: "b", Name: "b", Rating: 2000, Placed: true, Games: 10, Wins: 9, Losses: 1},
		{PlayerID: "c", Name: "c", Rating: 3000, Placed: false, Games: 4, Wins: 4},
	}
	require.NoError(t, st.RecordMatch(ctx, store.MatchRecord{ID: "seed", Processed: true}, docs))

	rows, err := svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2, "unplaced players stay off the leaderboard")
	assert.Equal(t, "b", rows[0].PlayerID)
	assert.Equal(t, 1, rows[0].Position)
	assert.Equal(t, rating.TierDiamond, rows[0].Tier)
	assert.InDelta(t, 0.9, rows[0].WinRate, 1e-9)
	assert.Equal(t, "a", rows[1].PlayerID)
	assert.Equal(t, 2, rows[1].Position)
}

func TestRatingView(t *testing.T) {
	svc, st := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Rating(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.RecordMatch(ctx, store.MatchRecord{ID: "seed", Processed: true}, []store.PlayerRating{
		{PlayerID: "a", Name: "a", Rating: 1500, Placed: true, PlacementGames: 10, Games: 30, Wins: 18, Losses: 12, PeakRating: 1550},
	}))

	view, err := svc.Rating(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1500, view.Rating)
	assert.Equal(t, rating.TierPlatinum, view.Tier)
	assert.Equal(t, 1550, view.PeakRating)
}
