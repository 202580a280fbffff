package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"watchdeck/models"
	"watchdeck/services/sessions"
	"watchdeck/services/users"
)

// SessionCookie is the name of the http-only cookie carrying the
// opaque session token.
const SessionCookie = "watchdeck_session"

type contextKey string

const userContextKey contextKey = "user"

// CurrentUser returns the authenticated user injected by RequireAuth.
func CurrentUser(r *http.Request) (models.User, bool) {
	user, ok := r.Context().Value(userContextKey).(models.User)
	return user, ok
}

type authUserService interface {
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	Get(ctx context.Context, id string) (models.User, error)
}

type sessionService interface {
	Create(ctx context.Context, userID string) (models.Session, error)
	Get(ctx context.Context, token string) (models.Session, error)
	Delete(ctx context.Context, token string) error
}

var (
	_ authUserService = (*users.Service)(nil)
	_ sessionService  = (*sessions.Service)(nil)
)

type AuthHandler struct {
	Users    authUserService
	Sessions sessionService
}

func NewAuthHandler(usersSvc authUserService, sessionsSvc sessionService) *AuthHandler {
	return &AuthHandler{Users: usersSvc, Sessions: sessionsSvc}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.Users.Authenticate(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			writeJSONError(w, err.Error(), http.StatusUnauthorized)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	session, err := h.Sessions.Create(r.Context(), user.ID)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		_ = h.Sessions.Delete(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// RequireAuth resolves the session cookie to a user and injects it
// into the request context, rejecting unauthenticated requests.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			writeJSONError(w, "not authenticated", http.StatusUnauthorized)
			return
		}

		session, err := h.Sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			writeJSONError(w, "not authenticated", http.StatusUnauthorized)
			return
		}

		user, err := h.Users.Get(r.Context(), session.UserID)
		if err != nil {
			writeJSONError(w, "not authenticated", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
