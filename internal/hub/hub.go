// Package hub keeps one lobby per live draft session and routes published
// snapshots to it.
package hub

import (
	"context"

	"github.com/riftarena/rift-backend/internal/engine"
	"github.com/riftarena/rift-backend/internal/lobby"
)

type HubMsg interface{ isHubMsg() }

type EnsureLobby struct {
	DraftID string
	Session engine.Session // only used if creation happens
	Reply   chan *lobby.Lobby
}

type GetLobby struct {
	DraftID string
	Reply   chan *lobby.Lobby
}

type RemoveLobby struct {
	DraftID string
}

// PublishSession routes a snapshot to the session's lobby, if anyone ever
// subscribed to it.
type PublishSession struct {
	Session engine.Session
}

type ShutdownHub struct{}

func (EnsureLobby) isHubMsg()    {}
func (GetLobby) isHubMsg()       {}
func (RemoveLobby) isHubMsg()    {}
func (PublishSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()    {}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Publish satisfies the draft service's Publisher.
func (h *Hub) Publish(session engine.Session) {
	h.inbox <- PublishSession{Session: session}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureLobby:
				if lb := h.lobbies[msg.DraftID]; lb != nil {
					msg.Reply <- lb
					break
				}
				lb := lobby.NewLobby(h.ctx, msg.Session)
				h.lobbies[msg.DraftID] = lb
				msg.Reply <- lb

			case GetLobby:
				msg.Reply <- h.lobbies[msg.DraftID] // May be nil

			case PublishSession:
				lb := h.lobbies[msg.Session.ID]
				if lb == nil {
					break
				}
				lb.Inbox() <- lobby.Publish{Session: msg.Session}
				// Terminal snapshots are the last thing subscribers see;
				// the lobby is done after delivering them.
				if engine.Closed(msg.Session) {
					lb.Inbox() <- lobby.Shutdown{}
					delete(h.lobbies, msg.Session.ID)
				}

			case RemoveLobby:
				if lb := h.lobbies[msg.DraftID]; lb != nil {
					lb.Inbox() <- lobby.Shutdown{}
				}
				delete(h.lobbies, msg.DraftID)

			case ShutdownHub:
				for _, lb := range h.lobbies {
					lb.Inbox() <- lobby.Shutdown{}
				}
				clear(h.lobbies)
				h.cancel()
			}
		}
	}
}
