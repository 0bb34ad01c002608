package engine

import (
	"errors"
	"slices"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrWrongTurn = errors.New("not your team's turn")
var ErrDuplicateSelection = errors.New("selection already banned or picked")
var ErrNotParticipant = errors.New("not a participant of this session")
var ErrNotWaiting = errors.New("session is not waiting for ready-up")
var ErrNotDrafting = errors.New("session is not in a ban or pick phase")
var ErrSessionClosed = errors.New("session already completed or cancelled")
var ErrClockStillRunning = errors.New("phase clock has not elapsed")

type Team string

const (
	TeamBlue Team = "blue"
	TeamRed  Team = "red"
)

type Role string

const (
	RoleTop     Role = "top"
	RoleJungle  Role = "jungle"
	RoleMid     Role = "mid"
	RoleADC     Role = "adc"
	RoleSupport Role = "support"
)

// RoleOrder is the canonical processing order used at match formation.
var RoleOrder = []Role{RoleTop, RoleJungle, RoleMid, RoleADC, RoleSupport}

type ActionType string

const (
	ActionBan  ActionType = "ban"
	ActionPick ActionType = "pick"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusBanning   Status = "banning"
	StatusPicking   Status = "picking"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type TurnStep struct {
	Team Team
	Type ActionType
}

// Player is one roster slot. Roster order is fixed at formation time; pick
// resolution assigns to the first slot on the acting team with no selection.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	Team        Team   `json:"team"`
	Rating      int    `json:"rating"`
	Ready       bool   `json:"ready"`
	SelectionID int    `json:"selection_id,omitempty"`
}

// Action is one slot of the 16-step template. Exactly one action is active
// while the session is banning or picking.
type Action struct {
	Index       int        `json:"index"`
	Type        ActionType `json:"type"`
	Team        Team       `json:"team"`
	SelectionID int        `json:"selection_id,omitempty"`
	ResolvedAt  time.Time  `json:"resolved_at,omitzero"`
	Active      bool       `json:"active"`
}

type LobbyCredentials struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Session is the full draft document. It is mutated only through the
// transition functions below, inside a store transaction.
type Session struct {
	ID             string            `json:"id"`
	Status         Status            `json:"status"`
	Phase          int               `json:"phase"`
	Actions        []Action          `json:"actions"`
	Players        []Player          `json:"players"`
	BlueRating     int               `json:"blue_rating"`
	RedRating      int               `json:"red_rating"`
	Bans           []int             `json:"bans"`
	PhaseStartedAt time.Time         `json:"phase_started_at"`
	PhaseLimit     time.Duration     `json:"phase_limit"`
	Lobby          *LobbyCredentials `json:"lobby,omitempty"`
	CancelReason   string            `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

type EventType string

const (
	EvtPlayerReady     EventType = "PlayerReady"
	EvtDraftStarted    EventType = "DraftStarted"
	EvtSelectionBanned EventType = "SelectionBanned"
	EvtSelectionPicked EventType = "SelectionPicked"
	EvtPhaseAdvanced   EventType = "PhaseAdvanced"
	EvtDraftCompleted  EventType = "DraftCompleted"
	EvtDraftCancelled  EventType = "DraftCancelled"
)

type Event struct {
	Type        EventType
	Team        Team
	PlayerID    string
	SelectionID int
}

// newLobbyCredentials is a package var so tests can pin the output.
var newLobbyCredentials = func() LobbyCredentials {
	name, _ := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", 10)
	password, _ := gonanoid.New(12)
	return LobbyCredentials{Name: "rift-" + name, Password: password}
}

// Ready marks a player ready. Re-readying is a no-op. When the tenth player
// readies up the session moves to banning and the phase clock starts.
func Ready(s Session, playerID string, now time.Time) (Session, []Event, error) {
	if terminal(s.Status) {
		return s, nil, ErrSessionClosed
	}
	if s.Status != StatusWaiting {
		return s, nil, ErrNotWaiting
	}

	i := playerIndex(s, playerID)
	if i < 0 {
		return s, nil, ErrNotParticipant
	}
	if s.Players[i].Ready {
		return s, nil, nil
	}

	s.Players[i].Ready = true
	events := []Event{{Type: EvtPlayerReady, PlayerID: playerID, Team: s.Players[i].Team}}

	if AllReady(s) {
		s.Status = StatusBanning
		s.Actions[0].Active = true
		s.PhaseStartedAt = now
		events = append(events, Event{Type: EvtDraftStarted})
	}
	return s, events, nil
}

// Submit resolves the active action with selectionID on behalf of playerID.
// Exactly one submission per phase index can succeed; everything else is
// rejected without mutation.
func Submit(s Session, playerID string, selectionID int, now time.Time) (Session, []Event, error) {
	if terminal(s.Status) {
		return s, nil, ErrSessionClosed
	}
	if s.Status != StatusBanning && s.Status != StatusPicking {
		return s, nil, ErrNotDrafting
	}

	i := playerIndex(s, playerID)
	if i < 0 {
		return s, nil, ErrNotParticipant
	}

	act := s.Actions[s.Phase]
	if !act.Active || act.Team != s.Players[i].Team {
		return s, nil, ErrWrongTurn
	}
	if isTaken(s, selectionID) {
		return s, nil, ErrDuplicateSelection
	}

	s.Actions[s.Phase].SelectionID = selectionID
	s.Actions[s.Phase].ResolvedAt = now
	s.Actions[s.Phase].Active = false

	var events []Event
	switch act.Type {
	case ActionBan:
		s.Bans = append(s.Bans, selectionID)
		events = append(events, Event{Type: EvtSelectionBanned, Team: act.Team, SelectionID: selectionID})
	case ActionPick:
		p := firstUnassigned(s, act.Team)
		s.Players[p].SelectionID = selectionID
		events = append(events, Event{
			Type: EvtSelectionPicked, Team: act.Team,
			PlayerID: s.Players[p].ID, SelectionID: selectionID,
		})
	}

	s.Phase++
	if s.Phase >= len(s.Actions) {
		s.Status = StatusCompleted
		creds := newLobbyCredentials()
		s.Lobby = &creds
		events = append(events, Event{Type: EvtDraftCompleted})
		return s, events, nil
	}

	s.Actions[s.Phase].Active = true
	s.PhaseStartedAt = now
	if s.Phase == FirstPickIndex {
		s.Status = StatusPicking
	}
	events = append(events, Event{Type: EvtPhaseAdvanced})
	return s, events, nil
}

// Timeout cancels a session whose phase clock has elapsed. The whole session
// is cancelled; a stalled phase is never auto-resolved.
func Timeout(s Session, now time.Time) (Session, []Event, error) {
	if terminal(s.Status) {
		return s, nil, ErrSessionClosed
	}
	if s.Status != StatusBanning && s.Status != StatusPicking {
		return s, nil, ErrNotDrafting
	}
	if now.Before(Deadline(s)) {
		return s, nil, ErrClockStillRunning
	}
	return cancel(s, "phase timed out"), []Event{{Type: EvtDraftCancelled}}, nil
}

// Cancel ends the session explicitly from any non-terminal state.
func Cancel(s Session, reason string) (Session, []Event, error) {
	if terminal(s.Status) {
		return s, nil, ErrSessionClosed
	}
	return cancel(s, reason), []Event{{Type: EvtDraftCancelled}}, nil
}

func cancel(s Session, reason string) Session {
	if s.Phase < len(s.Actions) {
		s.Actions[s.Phase].Active = false
	}
	s.Status = StatusCancelled
	s.CancelReason = reason
	return s
}

func terminal(st Status) bool {
	return st == StatusCompleted || st == StatusCancelled
}

func playerIndex(s Session, playerID string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == playerID })
}

// isTaken reports whether id already appears anywhere in the session, as a
// ban or as a pick.
func isTaken(s Session, id int) bool {
	if slices.Contains(s.Bans, id) {
		return true
	}
	return slices.ContainsFunc(s.Players, func(p Player) bool { return p.SelectionID == id })
}

// firstUnassigned returns the index of the first roster slot on team with no
// selection. Roster order is fixed at formation, so the scan is stable.
func firstUnassigned(s Session, team Team) int {
	for i, p := range s.Players {
		if p.Team == team && p.SelectionID == 0 {
			return i
		}
	}
	return -1
}
