package queue

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/riftarena/rift-backend/internal/engine"
	"github.com/riftarena/rift-backend/internal/metrics"
	"github.com/riftarena/rift-backend/internal/profile"
	"github.com/riftarena/rift-backend/internal/rating"
	"github.com/riftarena/rift-backend/internal/store"
)

var ErrInvalidRole = errors.New("unknown role")
var ErrAlreadyQueued = errors.New("already in queue")
var ErrAlreadyDrafting = errors.New("already in an active draft")
var ErrNotQueued = errors.New("not in queue")

// Service owns the waiting pool. Every successful join runs the matcher; on a
// formed match the ten entries and the new waiting session move in one
// transaction.
type Service struct {
	store      store.Store
	profiles   profile.Source
	metrics    metrics.Recorder
	log        *zap.Logger
	phaseLimit time.Duration
	now        func() time.Time
}

func NewService(st store.Store, profiles profile.Source, rec metrics.Recorder, log *zap.Logger, phaseLimit time.Duration) *Service {
	return &Service{
		store:      st,
		profiles:   profiles,
		metrics:    rec,
		log:        log,
		phaseLimit: phaseLimit,
		now:        time.Now,
	}
}

type JoinResult struct {
	Queued     bool
	MatchFound bool
	DraftID    string
}

type Status struct {
	InQueue       bool
	Entry         *store.QueueEntry
	TotalWaiting  int
	PerRoleCounts map[engine.Role]int
	ActiveDraftID string
}

func (s *Service) Join(ctx context.Context, playerID string, role engine.Role, region string) (JoinResult, error) {
	if !slices.Contains(engine.RoleOrder, role) {
		return JoinResult{}, ErrInvalidRole
	}

	if existing, err := s.store.GetQueueEntry(ctx, playerID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return JoinResult{}, err
	} else if existing != nil {
		return JoinResult{}, ErrAlreadyQueued
	}
	if active, err := s.store.ActiveDraftForPlayer(ctx, playerID); err != nil {
		return JoinResult{}, err
	} else if active != nil {
		return JoinResult{}, ErrAlreadyDrafting
	}

	name, snapshot, err := s.ratingSnapshot(ctx, playerID)
	if err != nil {
		return JoinResult{}, err
	}

	entry := store.QueueEntry{
		PlayerID: playerID,
		Name:     name,
		Role:     role,
		Rating:   snapshot,
		Region:   region,
		JoinedAt: s.now(),
	}
	if err := s.store.AddQueueEntry(ctx, entry); err != nil {
		if errors.Is(err, store.ErrExists) {
			return JoinResult{}, ErrAlreadyQueued
		}
		return JoinResult{}, err
	}

	entries, err := s.store.ListQueueEntries(ctx)
	if err != nil {
		return JoinResult{}, err
	}
	s.metrics.QueueDepth(len(entries))

	formation, ok := FindMatch(entries)
	if !ok {
		return JoinResult{Queued: true}, nil
	}

	session := s.buildSession(formation)
	if err := s.store.FormMatch(ctx, formation.PlayerIDs(), session); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// A racing leave took one of the ten; this join stays queued.
			s.log.Info("match formation lost a race, entry stays queued",
				zap.String("player_id", playerID))
			return JoinResult{Queued: true}, nil
		}
		return JoinResult{}, err
	}

	s.metrics.MatchFormed()
	s.metrics.QueueDepth(len(entries) - len(session.Players))
	s.log.Info("match formed",
		zap.String("draft_id", session.ID),
		zap.Int("blue_rating", session.BlueRating),
		zap.Int("red_rating", session.RedRating))

	return JoinResult{MatchFound: true, DraftID: session.ID}, nil
}

func (s *Service) Leave(ctx context.Context, playerID string) error {
	err := s.store.DeleteQueueEntry(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotQueued
	}
	return err
}

func (s *Service) Status(ctx context.Context, playerID string) (Status, error) {
	entries, err := s.store.ListQueueEntries(ctx)
	if err != nil {
		return Status{}, err
	}

	st := Status{
		TotalWaiting:  len(entries),
		PerRoleCounts: make(map[engine.Role]int, len(engine.RoleOrder)),
	}
	for _, role := range engine.RoleOrder {
		st.PerRoleCounts[role] = 0
	}
	for _, e := range entries {
		st.PerRoleCounts[e.Role]++
		if e.PlayerID == playerID {
			entry := e
			st.InQueue = true
			st.Entry = &entry
		}
	}

	// Reconciliation lookup: a match may have formed while the client was not
	// subscribed, consuming its entry.
	if !st.InQueue {
		active, err := s.store.ActiveDraftForPlayer(ctx, playerID)
		if err != nil {
			return Status{}, err
		}
		if active != nil {
			st.ActiveDraftID = active.ID
		}
	}
	return st, nil
}

// ratingSnapshot resolves the display name and the rating to queue with:
// the stored rating when one exists, otherwise a seed from the external rank.
func (s *Service) ratingSnapshot(ctx context.Context, playerID string) (string, int, error) {
	pr, err := s.store.GetRating(ctx, playerID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", 0, err
	}
	if pr != nil {
		return pr.Name, pr.Rating, nil
	}

	p, err := s.profiles.Get(ctx, playerID)
	if err != nil {
		return "", 0, err
	}
	return p.DisplayName, rating.SeedRating(p.RankTier), nil
}

func (s *Service) buildSession(f Formation) engine.Session {
	toPlayers := func(entries []store.QueueEntry) []engine.Player {
		players := make([]engine.Player, len(entries))
		for i, e := range entries {
			players[i] = engine.Player{
				ID:     e.PlayerID,
				Name:   e.Name,
				Role:   e.Role,
				Rating: e.Rating,
			}
		}
		return players
	}
	return engine.NewSession(uuid.NewString(), toPlayers(f.Blue), toPlayers(f.Red), s.phaseLimit, s.now())
}
