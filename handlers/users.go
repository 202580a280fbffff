package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"watchdeck/models"
	"watchdeck/services/users"
)

type userService interface {
	Create(ctx context.Context, username, displayName, plainPassword string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

var _ userService = (*users.Service)(nil)

type UsersHandler struct {
	Users userService
}

func NewUsersHandler(userSvc userService) *UsersHandler {
	return &UsersHandler{Users: userSvc}
}

// List returns every registered user without password data.
// GET /api/users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.Users.List(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

type createUserRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

// Create registers a new user.
// POST /api/users
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Users.Create(r.Context(), req.Username, req.DisplayName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrUsernameRequired), errors.Is(err, users.ErrPasswordRequired):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, users.ErrUsernameTaken):
			writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}
