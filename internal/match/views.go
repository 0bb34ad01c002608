package match

import (
	"context"

	"github.com/riftarena/rift-backend/internal/rating"
	"github.com/riftarena/rift-backend/internal/store"
)

// RatingView is the read model for a single player's rating.
type RatingView struct {
	PlayerID       string               `json:"player_id"`
	Name           string               `json:"name"`
	Rating         int                  `json:"rating"`
	Tier           rating.Tier          `json:"tier"`
	Placed         bool                 `json:"placed"`
	PlacementGames int                  `json:"placement_games"`
	Games          int                  `json:"games"`
	Wins           int                  `json:"wins"`
	Losses         int                  `json:"losses"`
	PeakRating     int                  `json:"peak_rating"`
	History        []store.HistoryEntry `json:"history"`
}

// LeaderboardRow is one position of the placed-players leaderboard.
type LeaderboardRow struct {
	Position int         `json:"position"`
	PlayerID string      `json:"player_id"`
	Name     string      `json:"name"`
	Rating   int         `json:"rating"`
	Tier     rating.Tier `json:"tier"`
	Games    int         `json:"games"`
	WinRate  float64     `json:"win_rate"`
}

func (s *Service) Rating(ctx context.Context, playerID string) (RatingView, error) {
	doc, err := s.store.GetRating(ctx, playerID)
	if err != nil {
		return RatingView{}, err
	}
	return RatingView{
		PlayerID:       doc.PlayerID,
		Name:           doc.Name,
		Rating:         doc.Rating,
		Tier:           rating.TierFor(doc.Rating, doc.Placed),
		Placed:         doc.Placed,
		PlacementGames: doc.PlacementGames,
		Games:          doc.Games,
		Wins:           doc.Wins,
		Losses:         doc.Losses,
		PeakRating:     doc.PeakRating,
		History:        doc.History,
	}, nil
}

// Leaderboard lists placed players by rating, descending.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	docs, err := s.store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	rows := make([]LeaderboardRow, len(docs))
	for i, doc := range docs {
		winRate := 0.0
		if doc.Games > 0 {
			winRate = float64(doc.Wins) / float64(doc.Games)
		}
		rows[i] = LeaderboardRow{
			Position: i + 1,
			PlayerID: doc.PlayerID,
			Name:     doc.Name,
			Rating:   doc.Rating,
			Tier:     rating.TierFor(doc.Rating, doc.Placed),
			Games:    doc.Games,
			WinRate:  winRate,
		}
	}
	return rows, nil
}

func (s *Service) Match(ctx context.Context, id string) (*store.MatchRecord, error) {
	return s.store.GetMatch(ctx, id)
}
