package engine

import (
	"slices"
	"time"
)

// NewSession builds a waiting session from two formed rosters. Blue slots come
// first so "first unassigned on team" scans are index-stable from day one.
func NewSession(id string, blue, red []Player, phaseLimit time.Duration, now time.Time) Session {
	actions := make([]Action, len(DraftOrder))
	for i, step := range DraftOrder {
		actions[i] = Action{Index: i, Type: step.Type, Team: step.Team}
	}

	players := make([]Player, 0, len(blue)+len(red))
	for _, p := range blue {
		p.Team = TeamBlue
		players = append(players, p)
	}
	for _, p := range red {
		p.Team = TeamRed
		players = append(players, p)
	}

	return Session{
		ID:         id,
		Status:     StatusWaiting,
		Actions:    actions,
		Players:    players,
		BlueRating: averageRating(blue),
		RedRating:  averageRating(red),
		PhaseLimit: phaseLimit,
		CreatedAt:  now,
	}
}

func AllReady(s Session) bool {
	for _, p := range s.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// Deadline is when the current phase clock expires.
func Deadline(s Session) time.Time {
	return s.PhaseStartedAt.Add(s.PhaseLimit)
}

// Closed reports whether the session reached a terminal status.
func Closed(s Session) bool {
	return terminal(s.Status)
}

// TeamPlayers returns team's roster in slot order.
func TeamPlayers(s Session, team Team) []Player {
	out := make([]Player, 0, 5)
	for _, p := range s.Players {
		if p.Team == team {
			out = append(out, p)
		}
	}
	return out
}

// HasPlayer reports whether playerID holds a roster slot.
func HasPlayer(s Session, playerID string) bool {
	return playerIndex(s, playerID) >= 0
}

// Clone deep-copies the session so callers can hand out snapshots without
// sharing backing arrays.
func Clone(s Session) Session {
	s.Actions = slices.Clone(s.Actions)
	s.Players = slices.Clone(s.Players)
	s.Bans = slices.Clone(s.Bans)
	if s.Lobby != nil {
		lobby := *s.Lobby
		s.Lobby = &lobby
	}
	return s
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func averageRating(players []Player) int {
	if len(players) == 0 {
		return 0
	}
	sum := 0
	for _, p := range players {
		sum += p.Rating
	}
	return sum / len(players)
}
