package handlers

import (
	"net/http"

	"github.com/markdave123-py/CoachHub/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	profile, err := h.users.Me(r.Context(), v)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
