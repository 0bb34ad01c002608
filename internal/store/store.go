// Package store owns persistence for ratings, queue entries, draft sessions
// and match records. Both implementations (postgres, in-memory) expose the
// same optimistic read-modify-write semantics: versioned documents, conflict
// on concurrent writes, bounded retry.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/riftarena/rift-backend/internal/engine"
	"github.com/riftarena/rift-backend/internal/rating"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("write conflict")
	ErrExists   = errors.New("already exists")
)

// HistoryEntry is one rating change, appended per processed match.
type HistoryEntry struct {
	MatchID string    `json:"match_id"`
	Before  int       `json:"before"`
	After   int       `json:"after"`
	Change  int       `json:"change"`
	Score   float64   `json:"score"`
	At      time.Time `json:"at"`
}

// PlayerRating is the per-player skill document. It is created lazily on the
// first processed match and never deleted.
type PlayerRating struct {
	PlayerID       string         `json:"player_id"`
	Name           string         `json:"name"`
	Rating         int            `json:"rating"`
	PlacementGames int            `json:"placement_games"`
	Placed         bool           `json:"placed"`
	Games          int            `json:"games"`
	Wins           int            `json:"wins"`
	Losses         int            `json:"losses"`
	PeakRating     int            `json:"peak_rating"`
	History        []HistoryEntry `json:"history"`
	Version        int64          `json:"-"`
}

// QueueEntry is one waiting player. At most one exists per identity.
type QueueEntry struct {
	PlayerID string      `json:"player_id"`
	Name     string      `json:"name"`
	Role     engine.Role `json:"role"`
	Rating   int         `json:"rating"`
	Region   string      `json:"region"`
	JoinedAt time.Time   `json:"joined_at"`
}

// MatchPlayer is one roster slot of a recorded match, raw stats plus the
// computed score and delta.
type MatchPlayer struct {
	PlayerID string       `json:"player_id"`
	Role     engine.Role  `json:"role"`
	Stats    rating.Stats `json:"stats"`
	Score    float64      `json:"score"`
	Change   int          `json:"change"`
}

type MatchTeam struct {
	Team      engine.Team   `json:"team"`
	AvgRating int           `json:"avg_rating"`
	Players   []MatchPlayer `json:"players"`
}

// MatchRecord is immutable once written; Processed flips false->true in the
// same transaction that updates every involved PlayerRating.
type MatchRecord struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Winner    engine.Team `json:"winner"`
	Blue      MatchTeam   `json:"blue"`
	Red       MatchTeam   `json:"red"`
	Processed bool        `json:"processed"`
}

// Store is the persistence boundary shared by all services.
type Store interface {
	// Queue
	GetQueueEntry(ctx context.Context, playerID string) (*QueueEntry, error)
	ListQueueEntries(ctx context.Context) ([]QueueEntry, error)
	AddQueueEntry(ctx context.Context, e QueueEntry) error
	DeleteQueueEntry(ctx context.Context, playerID string) error
	// FormMatch removes the matched players' queue entries and creates the
	// waiting session as one atomic unit.
	FormMatch(ctx context.Context, playerIDs []string, session engine.Session) error

	// Drafts
	GetDraft(ctx context.Context, id string) (engine.Session, error)
	ListActiveDrafts(ctx context.Context) ([]engine.Session, error)
	ActiveDraftForPlayer(ctx context.Context, playerID string) (*engine.Session, error)
	// UpdateDraft re-reads the session, applies mutate and writes the result
	// back, retrying on version conflicts. A mutate error aborts unchanged.
	UpdateDraft(ctx context.Context, id string, mutate func(engine.Session) (engine.Session, error)) (engine.Session, error)

	// Ratings and matches
	GetRating(ctx context.Context, playerID string) (*PlayerRating, error)
	Leaderboard(ctx context.Context, limit int) ([]PlayerRating, error)
	GetMatch(ctx context.Context, id string) (*MatchRecord, error)
	// RecordMatch writes the record and all rating documents atomically; a
	// version conflict on any rating aborts the whole batch with ErrConflict.
	RecordMatch(ctx context.Context, rec MatchRecord, ratings []PlayerRating) error
}

func activeStatus(st engine.Status) bool {
	return st == engine.StatusWaiting || st == engine.StatusBanning || st == engine.StatusPicking
}
