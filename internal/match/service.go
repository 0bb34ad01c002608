// Package match assembles immutable records of completed matches and feeds
// the rating engine. The record write and the ten rating updates are one
// atomic unit: either all land or none do.
package match

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/riftarena/rift-backend/internal/engine"
	"github.com/riftarena/rift-backend/internal/metrics"
	"github.com/riftarena/rift-backend/internal/profile"
	"github.com/riftarena/rift-backend/internal/rating"
	"github.com/riftarena/rift-backend/internal/store"
)

var ErrBadWinner = errors.New("winner must be blue or red")
var ErrBadTeamSize = errors.New("each team needs exactly five players")
var ErrDuplicatePlayer = errors.New("player appears twice in the result")
var ErrBadStats = errors.New("statistics must be non-negative")

// historyCap bounds the per-player rating history kept inline in the rating
// document; older entries roll off.
const historyCap = 100

const submitRetries = 4

// PlayerResult is one roster slot of a submitted match result.
type PlayerResult struct {
	PlayerID string
	Role     engine.Role
	Stats    rating.Stats
}

// PlayerDelta is the computed outcome for one player.
type PlayerDelta struct {
	PlayerID  string  `json:"player_id"`
	Score     float64 `json:"score"`
	Change    int     `json:"change"`
	NewRating int     `json:"new_rating"`
}

type Result struct {
	MatchID string        `json:"match_id"`
	Deltas  []PlayerDelta `json:"deltas"`
}

type Service struct {
	store    store.Store
	profiles profile.Source
	metrics  metrics.Recorder
	log      *zap.Logger
	now      func() time.Time
}

func NewService(st store.Store, profiles profile.Source, rec metrics.Recorder, log *zap.Logger) *Service {
	return &Service{
		store:    st,
		profiles: profiles,
		metrics:  rec,
		log:      log,
		now:      time.Now,
	}
}

// SubmitResult validates the submitted teams, computes per-player performance
// scores and deltas, and persists the match plus all rating updates in one
// transaction. A version conflict on any rating document restarts the whole
// computation against fresh reads, a bounded number of times.
func (s *Service) SubmitResult(ctx context.Context, winner engine.Team, blue, red []PlayerResult) (Result, error) {
	if winner != engine.TeamBlue && winner != engine.TeamRed {
		return Result{}, ErrBadWinner
	}
	if len(blue) != 5 || len(red) != 5 {
		return Result{}, ErrBadTeamSize
	}
	seen := make(map[string]bool, 10)
	for _, pr := range append(append([]PlayerResult{}, blue...), red...) {
		if seen[pr.PlayerID] {
			return Result{}, ErrDuplicatePlayer
		}
		seen[pr.PlayerID] = true
		if anyNegative(pr.Stats) {
			return Result{}, ErrBadStats
		}
	}

	var result Result
	backoff := retry.WithMaxRetries(submitRetries, retry.NewConstant(25*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := s.process(ctx, winner, blue, red)
		if errors.Is(err, store.ErrConflict) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.metrics.MatchProcessed()
	s.log.Info("match recorded",
		zap.String("match_id", result.MatchID),
		zap.String("winner", string(winner)))
	return result, nil
}

func (s *Service) process(ctx context.Context, winner engine.Team, blue, red []PlayerResult) (Result, error) {
	blueRatings, err := s.currentRatings(ctx, blue)
	if err != nil {
		return Result{}, err
	}
	redRatings, err := s.currentRatings(ctx, red)
	if err != nil {
		return Result{}, err
	}

	blueAvg := averageOf(blueRatings)
	redAvg := averageOf(redRatings)

	all := make([]rating.Stats, 0, 10)
	for _, pr := range blue {
		all = append(all, pr.Stats)
	}
	for _, pr := range red {
		all = append(all, pr.Stats)
	}

	now := s.now()
	matchID := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()

	rec := store.MatchRecord{
		ID:        matchID,
		CreatedAt: now,
		Winner:    winner,
		Blue:      store.MatchTeam{Team: engine.TeamBlue, AvgRating: blueAvg},
		Red:       store.MatchTeam{Team: engine.TeamRed, AvgRating: redAvg},
		Processed: true,
	}

	updated := make([]store.PlayerRating, 0, 10)
	deltas := make([]PlayerDelta, 0, 10)

	apply := func(results []PlayerResult, ratings []store.PlayerRating, won bool, oppAvg int, team *store.MatchTeam) {
		for i, pr := range results {
			doc := ratings[i]
			isPlacement := !doc.Placed

			change, score := rating.Delta(pr.Stats, all, rating.MatchContext{
				Won:               won,
				PlayerRating:      doc.Rating,
				OpponentAvgRating: oppAvg,
			}, isPlacement)
			before := doc.Rating
			doc.Rating = rating.Apply(doc.Rating, change)

			doc.Games++
			if won {
				doc.Wins++
			} else {
				doc.Losses++
			}
			if doc.Rating > doc.PeakRating {
				doc.PeakRating = doc.Rating
			}
			if !doc.Placed {
				doc.PlacementGames++
				if doc.PlacementGames >= rating.PlacementGames {
					doc.Placed = true
				}
			}
			doc.History = append(doc.History, store.HistoryEntry{
				MatchID: matchID,
				Before:  before,
				After:   doc.Rating,
				Change:  change,
				Score:   score,
				At:      now,
			})
			if len(doc.History) > historyCap {
				doc.History = doc.History[len(doc.History)-historyCap:]
			}

			updated = append(updated, doc)
			deltas = append(deltas, PlayerDelta{
				PlayerID: pr.PlayerID, Score: score, Change: change, NewRating: doc.Rating,
			})
			team.Players = append(team.Players, store.MatchPlayer{
				PlayerID: pr.PlayerID, Role: pr.Role, Stats: pr.Stats,
				Score: score, Change: change,
			})
		}
	}

	apply(blue, blueRatings, winner == engine.TeamBlue, redAvg, &rec.Blue)
	apply(red, redRatings, winner == engine.TeamRed, blueAvg, &rec.Red)

	if err := s.store.RecordMatch(ctx, rec, updated); err != nil {
		return Result{}, err
	}
	return Result{MatchID: matchID, Deltas: deltas}, nil
}

// currentRatings reads (or lazily seeds) the rating documents for a team, in
// roster order.
func (s *Service) currentRatings(ctx context.Context, results []PlayerResult) ([]store.PlayerRating, error) {
	ratings := make([]store.PlayerRating, len(results))
	for i, pr := range results {
		doc, err := s.store.GetRating(ctx, pr.PlayerID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if doc != nil {
			ratings[i] = *doc
			continue
		}

		p, err := s.profiles.Get(ctx, pr.PlayerID)
		if err != nil {
			return nil, err
		}
		seed := rating.SeedRating(p.RankTier)
		ratings[i] = store.PlayerRating{
			PlayerID:   pr.PlayerID,
			Name:       p.DisplayName,
			Rating:     seed,
			PeakRating: seed,
		}
	}
	return ratings, nil
}

func averageOf(ratings []store.PlayerRating) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Rating
	}
	return sum / len(ratings)
}

func anyNegative(s rating.Stats) bool {
	return s.Kills < 0 || s.Deaths < 0 || s.Assists < 0 ||
		s.Damage < 0 || s.Farm < 0 || s.Vision < 0 || s.Objectives < 0
}
