package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/riftarena/rift-backend/internal/draft"
	"github.com/riftarena/rift-backend/internal/hub"
	"github.com/riftarena/rift-backend/internal/lobby"
	"github.com/riftarena/rift-backend/internal/types"
)

// Handler upgrades the connection and streams versioned draft snapshots.
// Clients may also send Ready/SubmitAction frames over the same socket; the
// resulting state change comes back through the lobby broadcast, not as a
// direct reply.
func Handler(h *hub.Hub, drafts *draft.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID := r.URL.Query().Get("draft_id")
		if draftID == "" {
			http.Error(w, "missing draft_id", http.StatusBadRequest)
			return
		}

		// Browsers cannot set headers on websocket dials, so accept the
		// player identity as a query param too.
		playerID := r.Header.Get("X-Player-ID")
		if playerID == "" {
			playerID = r.URL.Query().Get("player_id")
		}
		if playerID == "" {
			http.Error(w, "missing player identity", http.StatusUnauthorized)
			return
		}

		session, err := drafts.Get(r.Context(), draftID)
		if err != nil {
			http.Error(w, "draft not found", http.StatusNotFound)
			return
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.EnsureLobby{DraftID: draftID, Session: session, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "failed to open lobby", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan lobby.Snapshot, 8)
		clientID := gonanoid.Must(8)

		lb.Inbox() <- lobby.Join{ClientID: clientID, Outbox: out}
		defer func() { lb.Inbox() <- lobby.Leave{ClientID: clientID} }()

		log.Debug("ws client joined",
			zap.String("draft_id", draftID),
			zap.String("player_id", playerID),
			zap.String("client_id", clientID))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{Type: "StateSnapshot", Version: snap.Version, State: &snap.Session}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop. No read deadline: listen-only subscribers never send
		// frames, and the library keeps the connection alive by answering
		// pings while a Read is pending.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			switch cm.Type {
			case "Ready":
				if _, _, err := drafts.Ready(r.Context(), draftID, playerID); err != nil {
					writeError(r.Context(), conn, err.Error())
				}
			case "SubmitAction":
				if _, err := drafts.SubmitAction(r.Context(), draftID, playerID, cm.SelectionID); err != nil {
					writeError(r.Context(), conn, err.Error())
				}
			default:
				writeError(r.Context(), conn, "unknown type")
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "Error", Error: msg})
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
