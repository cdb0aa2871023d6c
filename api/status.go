package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"preset-panels/subscription"
)

const rebuildTimeout = 30 * time.Second

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "codec connection closed", http.StatusServiceUnavailable)
		return
	default:
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getMappings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.macro.Store().Snapshot())
}

func (h *handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.macro.Registrar().States())
}

// activateSubscription fires one subscription by name. A second request for
// the same name is refused by the registrar and reported as not activated.
func (h *handler) activateSubscription(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	activated, err := h.macro.Registrar().Activate(r.Context(), name)
	if err != nil {
		if errors.Is(err, subscription.ErrUnknown) {
			http.Error(w, "subscription not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to activate subscription", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "activated": activated})
}

func (h *handler) getPrompt(w http.ResponseWriter, r *http.Request) {
	state, feedbackID := h.macro.Flow().State()
	writeJSON(w, http.StatusOK, struct {
		State      string `json:"state"`
		FeedbackID string `json:"feedbackId,omitempty"`
	}{state.String(), feedbackID})
}

func (h *handler) rebuild(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), rebuildTimeout)
	defer cancel()
	snap, err := h.macro.Rebuild(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			http.Error(w, "rebuild timed out", http.StatusGatewayTimeout)
			return
		}
		http.Error(w, "rebuild failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
