package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/CoachHub/internal/models"
	"github.com/markdave123-py/CoachHub/internal/services"
)

type ActionHandler struct {
	actions *services.ActionService
}

func NewActionHandler(actions *services.ActionService) *ActionHandler {
	return &ActionHandler{actions: actions}
}

func (h *ActionHandler) List(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	actions, err := h.actions.List(r.Context(), v, r.URL.Query().Get("session_id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (h *ActionHandler) Create(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	var in services.ActionInput
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	a, err := h.actions.Create(r.Context(), v, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type transition func(ctx context.Context, viewer models.Viewer, id string) (models.Action, error)

// Transition serves the lifecycle endpoints (apply, dismiss, ...).
func (h *ActionHandler) Transition(name string) http.HandlerFunc {
	var step transition
	switch name {
	case "apply":
		step = h.actions.Apply
	case "dismiss":
		step = h.actions.Dismiss
	case "request-approval":
		step = h.actions.RequestApproval
	case "approve":
		step = h.actions.Approve
	case "reject":
		step = h.actions.Reject
	default:
		panic("unknown action transition " + name)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := viewer(w, r)
		if !ok {
			return
		}
		a, err := step(r.Context(), v, chi.URLParam(r, "id"))
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}
