// Package draft orchestrates ready/submit/timeout transitions for live
// sessions. State lives in the store; every transition is a transactional
// read-modify-write of the session document, and every accepted transition is
// published to subscribers.
package draft

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/riftarena/rift-backend/internal/catalog"
	"github.com/riftarena/rift-backend/internal/engine"
	"github.com/riftarena/rift-backend/internal/metrics"
	"github.com/riftarena/rift-backend/internal/store"
)

var ErrUnknownSelection = errors.New("unknown selection id")

// Publisher receives the new session state after every accepted transition.
type Publisher interface {
	Publish(session engine.Session)
}

// NoopPublisher discards snapshots; used in tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(engine.Session) {}

type Service struct {
	store   store.Store
	catalog catalog.Source
	pub     Publisher
	metrics metrics.Recorder
	log     *zap.Logger
	now     func() time.Time
}

func NewService(st store.Store, cat catalog.Source, pub Publisher, rec metrics.Recorder, log *zap.Logger) *Service {
	return &Service{
		store:   st,
		catalog: cat,
		pub:     pub,
		metrics: rec,
		log:     log,
		now:     time.Now,
	}
}

func (s *Service) Get(ctx context.Context, draftID string) (engine.Session, error) {
	return s.store.GetDraft(ctx, draftID)
}

// Ready marks playerID ready and reports whether the draft has started.
func (s *Service) Ready(ctx context.Context, draftID, playerID string) (engine.Session, bool, error) {
	var events []engine.Event
	session, err := s.store.UpdateDraft(ctx, draftID, func(cur engine.Session) (engine.Session, error) {
		next, evts, err := engine.Ready(cur, playerID, s.now())
		events = evts
		return next, err
	})
	if err != nil {
		return engine.Session{}, false, err
	}

	s.pub.Publish(session)
	started := engine.ContainsEvent(events, engine.EvtDraftStarted)
	if started {
		s.log.Info("draft started", zap.String("draft_id", draftID))
	}
	return session, started, nil
}

// SubmitAction resolves the active phase with selectionID on behalf of
// playerID. Exactly one submission per phase can win; losers get the engine's
// precondition error and must re-read state.
func (s *Service) SubmitAction(ctx context.Context, draftID, playerID string, selectionID int) (engine.Session, error) {
	if selectionID <= 0 {
		return engine.Session{}, ErrUnknownSelection
	}
	ok, err := s.catalog.Valid(ctx, selectionID)
	if err != nil {
		return engine.Session{}, err
	}
	if !ok {
		return engine.Session{}, ErrUnknownSelection
	}

	var events []engine.Event
	session, err := s.store.UpdateDraft(ctx, draftID, func(cur engine.Session) (engine.Session, error) {
		next, evts, err := engine.Submit(cur, playerID, selectionID, s.now())
		events = evts
		return next, err
	})
	if err != nil {
		return engine.Session{}, err
	}

	s.pub.Publish(session)
	if engine.ContainsEvent(events, engine.EvtDraftCompleted) {
		s.metrics.DraftCompleted()
		s.log.Info("draft completed", zap.String("draft_id", draftID))
	}
	return session, nil
}

// Timeout cancels a session whose phase clock has elapsed. Racing a
// submission is fine: the transaction re-reads, sees the restarted clock and
// reports ErrClockStillRunning.
func (s *Service) Timeout(ctx context.Context, draftID string) (engine.Session, error) {
	session, err := s.store.UpdateDraft(ctx, draftID, func(cur engine.Session) (engine.Session, error) {
		next, _, err := engine.Timeout(cur, s.now())
		return next, err
	})
	if err != nil {
		return engine.Session{}, err
	}

	s.pub.Publish(session)
	s.metrics.DraftCancelled("timeout")
	s.log.Info("draft cancelled on timeout",
		zap.String("draft_id", draftID),
		zap.Int("phase", session.Phase))
	return session, nil
}

// Cancel ends a session explicitly.
func (s *Service) Cancel(ctx context.Context, draftID, reason string) (engine.Session, error) {
	session, err := s.store.UpdateDraft(ctx, draftID, func(cur engine.Session) (engine.Session, error) {
		next, _, err := engine.Cancel(cur, reason)
		return next, err
	})
	if err != nil {
		return engine.Session{}, err
	}
	s.pub.Publish(session)
	s.metrics.DraftCancelled("explicit")
	return session, nil
}

// SweepTimeouts cancels every active session whose phase clock has elapsed.
// The sweep is the only mechanism that reclaims a stalled session; no lock is
// ever held while waiting on a human.
func (s *Service) SweepTimeouts(ctx context.Context) {
	sessions, err := s.store.ListActiveDrafts(ctx)
	if err != nil {
		s.log.Error("timeout sweep: list drafts", zap.Error(err))
		return
	}
	now := s.now()
	for _, session := range sessions {
		if session.Status != engine.StatusBanning && session.Status != engine.StatusPicking {
			continue
		}
		if now.Before(engine.Deadline(session)) {
			continue
		}
		if _, err := s.Timeout(ctx, session.ID); err != nil &&
			!errors.Is(err, engine.ErrClockStillRunning) &&
			!errors.Is(err, engine.ErrSessionClosed) {
			s.log.Error("timeout sweep", zap.String("draft_id", session.ID), zap.Error(err))
		}
	}
}
