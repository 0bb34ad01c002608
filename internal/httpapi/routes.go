package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/riftarena/rift-backend/internal/hub"
	"github.com/riftarena/rift-backend/internal/ws"
)

type ctxKey int

const playerKey ctxKey = 0

// playerID returns the identity set by RequirePlayer. Routes behind the
// middleware can assume it is non-empty.
func playerID(r *http.Request) string {
	id, _ := r.Context().Value(playerKey).(string)
	return id
}

// RequirePlayer trusts the X-Player-ID header; authentication proper sits in
// front of this service.
func RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Player-ID")
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing X-Player-ID"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), playerKey, id)))
	})
}

func SetupRoutes(api *API, h *hub.Hub, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/ws", ws.Handler(h, api.Drafts, api.Log))
	r.Get("/leaderboard", api.Leaderboard)
	r.Get("/ratings/{id}", api.GetRating)
	r.Get("/matches/{id}", api.GetMatch)
	r.Get("/drafts/{id}", api.GetDraft)

	// Player routes
	r.Group(func(r chi.Router) {
		r.Use(RequirePlayer)

		r.Post("/queue/join", api.JoinQueue)
		r.Post("/queue/leave", api.LeaveQueue)
		r.Get("/queue/status", api.QueueStatus)

		r.Post("/drafts/{id}/ready", api.ReadyUp)
		r.Post("/drafts/{id}/actions", api.SubmitAction)
		r.Post("/drafts/{id}/timeout", api.TimeoutDraft)

		r.Post("/matches", api.SubmitResult)
		r.Get("/ratings/me", api.MyRating)
	})

	return cors.AllowAll().Handler(r)
}
