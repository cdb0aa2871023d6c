// Package api serves a small read-mostly HTTP surface over a running macro:
// the current mappings, subscription and prompt state, a rebuild trigger and
// a WebSocket tap of routed events.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"preset-panels/macro"
)

// RegisterRoutes builds the router for m. done, if non-nil, is closed when
// the codec connection ends; event observers are told and disconnected.
func RegisterRoutes(m *macro.Macro, done <-chan struct{}) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := &handler{macro: m, done: done}

	r.Get("/healthz", h.healthz)

	r.Get("/api/mappings", h.getMappings)
	r.Get("/api/subscriptions", h.listSubscriptions)
	r.Post("/api/subscriptions/{name}/activate", h.activateSubscription)
	r.Get("/api/prompt", h.getPrompt)
	r.Post("/api/rebuild", h.rebuild)

	// WebSocket
	r.Get("/api/events/ws", h.handleWS)

	return r
}

type handler struct {
	macro *macro.Macro
	done  <-chan struct{}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
