package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/riftarena/rift-backend/internal/engine"
)

// Memory is an in-process Store with the same semantics as the postgres
// implementation. It backs tests and local development.
type Memory struct {
	mu            sync.Mutex
	queue         map[string]QueueEntry
	drafts        map[string]engine.Session
	draftVersions map[string]int64
	ratings       map[string]PlayerRating
	matches       map[string]MatchRecord
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		queue:         make(map[string]QueueEntry),
		drafts:        make(map[string]engine.Session),
		draftVersions: make(map[string]int64),
		ratings:       make(map[string]PlayerRating),
		matches:       make(map[string]MatchRecord),
	}
}

func (m *Memory) GetQueueEntry(_ context.Context, playerID string) (*QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.queue[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *Memory) ListQueueEntries(_ context.Context) ([]QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]QueueEntry, 0, len(m.queue))
	for _, e := range m.queue {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].JoinedAt.Before(entries[j].JoinedAt) })
	return entries, nil
}

func (m *Memory) AddQueueEntry(_ context.Context, e QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queue[e.PlayerID]; ok {
		return ErrExists
	}
	m.queue[e.PlayerID] = e
	return nil
}

func (m *Memory) DeleteQueueEntry(_ context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queue[playerID]; !ok {
		return ErrNotFound
	}
	delete(m.queue, playerID)
	return nil
}

func (m *Memory) FormMatch(_ context.Context, playerIDs []string, session engine.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range playerIDs {
		if _, ok := m.queue[id]; !ok {
			return ErrConflict
		}
	}
	for _, id := range playerIDs {
		delete(m.queue, id)
	}
	m.drafts[session.ID] = engine.Clone(session)
	m.draftVersions[session.ID] = 1
	return nil
}

func (m *Memory) GetDraft(_ context.Context, id string) (engine.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.drafts[id]
	if !ok {
		return engine.Session{}, ErrNotFound
	}
	return engine.Clone(s), nil
}

func (m *Memory) ListActiveDrafts(_ context.Context) ([]engine.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := make([]engine.Session, 0)
	for _, s := range m.drafts {
		if activeStatus(s.Status) {
			sessions = append(sessions, engine.Clone(s))
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.Before(sessions[j].CreatedAt) })
	return sessions, nil
}

func (m *Memory) ActiveDraftForPlayer(_ context.Context, playerID string) (*engine.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.drafts {
		if activeStatus(s.Status) && engine.HasPlayer(s, playerID) {
			clone := engine.Clone(s)
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *Memory) UpdateDraft(_ context.Context, id string, mutate func(engine.Session) (engine.Session, error)) (engine.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.drafts[id]
	if !ok {
		return engine.Session{}, ErrNotFound
	}
	next, err := mutate(engine.Clone(s))
	if err != nil {
		return engine.Session{}, err
	}
	m.drafts[id] = engine.Clone(next)
	m.draftVersions[id]++
	return next, nil
}

func (m *Memory) GetRating(_ context.Context, playerID string) (*PlayerRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.ratings[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	pr.History = slices.Clone(pr.History)
	return &pr, nil
}

func (m *Memory) Leaderboard(_ context.Context, limit int) ([]PlayerRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PlayerRating, 0)
	for _, pr := range m.ratings {
		if pr.Placed {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) GetMatch(_ context.Context, id string) (*MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *Memory) RecordMatch(_ context.Context, rec MatchRecord, ratings []PlayerRating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.matches[rec.ID]; ok {
		return ErrExists
	}
	// Validate every version before touching anything so a conflict leaves
	// the store untouched, like the postgres transaction does.
	for _, pr := range ratings {
		current, ok := m.ratings[pr.PlayerID]
		if !ok && pr.Version != 0 {
			return ErrConflict
		}
		if ok && current.Version != pr.Version {
			return ErrConflict
		}
	}
	m.matches[rec.ID] = rec
	for _, pr := range ratings {
		pr.Version++
		m.ratings[pr.PlayerID] = pr
	}
	return nil
}
