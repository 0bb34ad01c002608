package types

import "github.com/riftarena/rift-backend/internal/engine"

type ClientMessage struct {
	Type        string `json:"type"` // "Ready" | "SubmitAction"
	SelectionID int    `json:"selection_id,omitempty"`
}

type ServerMessage struct {
	Type    string          `json:"type"` // "StateSnapshot" | "Error"
	Version int             `json:"version,omitempty"`
	State   *engine.Session `json:"state,omitempty"`
	Error   string          `json:"error,omitempty"`
}
