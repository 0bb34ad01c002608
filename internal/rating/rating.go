// Package rating converts raw match statistics into bounded skill-rating
// deltas. Everything here is pure; persistence belongs to the callers.
package rating

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	MinRating = 0
	MaxRating = 4000

	// BaseChange is the unscaled magnitude of a single win or loss.
	BaseChange = 25

	// PlacementGames is the size of the placement window; deltas inside it
	// are doubled and no public tier is shown.
	PlacementGames      = 10
	PlacementMultiplier = 2.0
)

// Category weights. They must sum to 1 so a uniformly average player lands on
// a total score of exactly 50.
const (
	weightKDA        = 0.30
	weightDamage     = 0.25
	weightFarm       = 0.20
	weightVision     = 0.15
	weightObjectives = 0.10
)

// Stats are the raw per-player numbers submitted with a match result.
type Stats struct {
	Kills      int `json:"kills"`
	Deaths     int `json:"deaths"`
	Assists    int `json:"assists"`
	Damage     int `json:"damage"`
	Farm       int `json:"farm"`
	Vision     int `json:"vision"`
	Objectives int `json:"objectives"`
}

// Breakdown carries the per-category scores behind a total, for history
// display.
type Breakdown struct {
	KDA        float64 `json:"kda"`
	Damage     float64 `json:"damage"`
	Farm       float64 `json:"farm"`
	Vision     float64 `json:"vision"`
	Objectives float64 `json:"objectives"`
	Total      float64 `json:"total"`
}

// MatchContext is what Delta needs to know beyond the stats themselves.
type MatchContext struct {
	Won               bool
	PlayerRating      int
	OpponentAvgRating int
}

// kdaValue guards the deaths=0 case: a deathless game scores double the
// kill participation instead of dividing by zero.
func kdaValue(s Stats) float64 {
	ka := float64(s.Kills + s.Assists)
	if s.Deaths == 0 {
		return ka * 2
	}
	return ka / float64(s.Deaths)
}

// categoryScore normalizes a raw value against the match-wide average:
// clamp(50*value/avg, 0, 100). Average-relative, so the formula is
// self-calibrating per match.
func categoryScore(value, avg float64) float64 {
	if avg == 0 {
		return 50
	}
	return clamp(50*value/avg, 0, 100)
}

// Score computes a 0-100 performance score for one player against the whole
// match. all must include the player's own stats.
func Score(player Stats, all []Stats) (float64, Breakdown) {
	kda := make([]float64, len(all))
	damage := make([]float64, len(all))
	farm := make([]float64, len(all))
	vision := make([]float64, len(all))
	objectives := make([]float64, len(all))
	for i, s := range all {
		kda[i] = kdaValue(s)
		damage[i] = float64(s.Damage)
		farm[i] = float64(s.Farm)
		vision[i] = float64(s.Vision)
		objectives[i] = float64(s.Objectives)
	}

	b := Breakdown{
		KDA:        categoryScore(kdaValue(player), stat.Mean(kda, nil)),
		Damage:     categoryScore(float64(player.Damage), stat.Mean(damage, nil)),
		Farm:       categoryScore(float64(player.Farm), stat.Mean(farm, nil)),
		Vision:     categoryScore(float64(player.Vision), stat.Mean(vision, nil)),
		Objectives: categoryScore(float64(player.Objectives), stat.Mean(objectives, nil)),
	}
	b.Total = weightKDA*b.KDA + weightDamage*b.Damage + weightFarm*b.Farm +
		weightVision*b.Vision + weightObjectives*b.Objectives
	return b.Total, b
}

// ExpectedScore is the Elo win probability for a player against an opponent
// of the given average rating.
func ExpectedScore(playerRating, opponentRating int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponentRating-playerRating)/400.0))
}

// Delta turns a performance score and match context into a signed, rounded
// rating change. The perf multiplier spans [0.5, 1.5] and the opponent
// multiplier [0.8, 1.2], bounding the maximum single-match swing.
func Delta(player Stats, all []Stats, ctx MatchContext, placement bool) (int, float64) {
	score, _ := Score(player, all)

	perf := 0.5 + score/100
	expected := ExpectedScore(ctx.PlayerRating, ctx.OpponentAvgRating)

	var change float64
	if ctx.Won {
		// Beating a stronger-than-expected opponent pays more.
		opp := clamp(2*(1-expected), 0.8, 1.2)
		change = BaseChange * perf * opp
	} else {
		// Losing to a stronger-than-expected opponent costs less.
		opp := clamp(2*expected, 0.8, 1.2)
		change = -BaseChange * perf * opp
	}
	if placement {
		change *= PlacementMultiplier
	}
	return int(math.Round(change)), score
}

// Apply clamps the updated rating into [MinRating, MaxRating].
func Apply(current, change int) int {
	next := current + change
	if next < MinRating {
		return MinRating
	}
	if next > MaxRating {
		return MaxRating
	}
	return next
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
