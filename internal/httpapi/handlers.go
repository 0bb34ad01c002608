package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/riftarena/rift-backend/internal/draft"
	"github.com/riftarena/rift-backend/internal/engine"
	"github.com/riftarena/rift-backend/internal/match"
	"github.com/riftarena/rift-backend/internal/queue"
	"github.com/riftarena/rift-backend/internal/rating"
	"github.com/riftarena/rift-backend/internal/store"
)

type API struct {
	Queue   *queue.Service
	Drafts  *draft.Service
	Matches *match.Service
	Log     *zap.Logger
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

// statusFor maps service sentinels onto HTTP statuses: malformed input is
// 400, missing documents 404, identity problems 403, and state machine
// precondition failures 409.
func statusFor(err error) int {
	switch {
	case errors.Is(err, queue.ErrInvalidRole),
		errors.Is(err, draft.ErrUnknownSelection),
		errors.Is(err, match.ErrBadWinner),
		errors.Is(err, match.ErrBadTeamSize),
		errors.Is(err, match.ErrDuplicatePlayer),
		errors.Is(err, match.ErrBadStats):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, queue.ErrAlreadyQueued),
		errors.Is(err, queue.ErrAlreadyDrafting),
		errors.Is(err, queue.ErrNotQueued),
		errors.Is(err, engine.ErrWrongTurn),
		errors.Is(err, engine.ErrDuplicateSelection),
		errors.Is(err, engine.ErrNotWaiting),
		errors.Is(err, engine.ErrNotDrafting),
		errors.Is(err, engine.ErrSessionClosed),
		errors.Is(err, engine.ErrClockStillRunning),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type joinQueueRequest struct {
	Role   engine.Role `json:"role"`
	Region string      `json:"region"`
}

func (a *API) JoinQueue(w http.ResponseWriter, r *http.Request) {
	var req joinQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
		return
	}

	res, err := a.Queue.Join(r.Context(), playerID(r), req.Role, req.Region)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Queued     bool   `json:"queued"`
		MatchFound bool   `json:"match_found"`
		DraftID    string `json:"draft_id,omitempty"`
	}{res.Queued, res.MatchFound, res.DraftID})
}

func (a *API) LeaveQueue(w http.ResponseWriter, r *http.Request) {
	if err := a.Queue.Leave(r.Context(), playerID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) QueueStatus(w http.ResponseWriter, r *http.Request) {
	st, err := a.Queue.Status(r.Context(), playerID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		InQueue       bool                `json:"in_queue"`
		Entry         *store.QueueEntry   `json:"entry,omitempty"`
		TotalWaiting  int                 `json:"total_waiting"`
		PerRole       map[engine.Role]int `json:"per_role"`
		ActiveDraftID string              `json:"active_draft_id,omitempty"`
	}{st.InQueue, st.Entry, st.TotalWaiting, st.PerRoleCounts, st.ActiveDraftID})
}

func (a *API) GetDraft(w http.ResponseWriter, r *http.Request) {
	session, err := a.Drafts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) ReadyUp(w http.ResponseWriter, r *http.Request) {
	session, started, err := a.Drafts.Ready(r.Context(), chi.URLParam(r, "id"), playerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Started bool           `json:"started"`
		State   engine.Session `json:"state"`
	}{started, session})
}

type submitActionRequest struct {
	SelectionID int `json:"selection_id"`
}

func (a *API) SubmitAction(w http.ResponseWriter, r *http.Request) {
	var req submitActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
		return
	}

	session, err := a.Drafts.SubmitAction(r.Context(), chi.URLParam(r, "id"), playerID(r), req.SelectionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) TimeoutDraft(w http.ResponseWriter, r *http.Request) {
	session, err := a.Drafts.Timeout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type resultPlayer struct {
	PlayerID string       `json:"player_id"`
	Role     engine.Role  `json:"role"`
	Stats    rating.Stats `json:"stats"`
}

type submitResultRequest struct {
	Winner engine.Team    `json:"winner"`
	Blue   []resultPlayer `json:"blue"`
	Red    []resultPlayer `json:"red"`
}

func (a *API) SubmitResult(w http.ResponseWriter, r *http.Request) {
	var req submitResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
		return
	}

	res, err := a.Matches.SubmitResult(r.Context(), req.Winner, toResults(req.Blue), toResults(req.Red))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func toResults(in []resultPlayer) []match.PlayerResult {
	out := make([]match.PlayerResult, len(in))
	for i, p := range in {
		out[i] = match.PlayerResult{PlayerID: p.PlayerID, Role: p.Role, Stats: p.Stats}
	}
	return out
}

func (a *API) GetMatch(w http.ResponseWriter, r *http.Request) {
	rec, err := a.Matches.Match(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) MyRating(w http.ResponseWriter, r *http.Request) {
	a.writeRating(w, r, playerID(r))
}

func (a *API) GetRating(w http.ResponseWriter, r *http.Request) {
	a.writeRating(w, r, chi.URLParam(r, "id"))
}

func (a *API) writeRating(w http.ResponseWriter, r *http.Request, id string) {
	view, err := a.Matches.Rating(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad limit"})
			return
		}
		limit = n
	}

	rows, err := a.Matches.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
