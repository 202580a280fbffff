package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"watchdeck/models"
	"watchdeck/services/sessions"
	"watchdeck/services/users"
)

type stubUsers struct {
	user models.User
}

func (s *stubUsers) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	if username == s.user.Username && password == "correct" {
		return s.user, nil
	}
	return models.User{}, users.ErrInvalidCredentials
}

func (s *stubUsers) Get(ctx context.Context, id string) (models.User, error) {
	if id == s.user.ID {
		return s.user, nil
	}
	return models.User{}, users.ErrUserNotFound
}

type stubSessions struct {
	tokens map[string]models.Session
}

func newStubSessions() *stubSessions {
	return &stubSessions{tokens: make(map[string]models.Session)}
}

func (s *stubSessions) Create(ctx context.Context, userID string) (models.Session, error) {
	session := models.Session{Token: "tok-" + userID, UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}
	s.tokens[session.Token] = session
	return session, nil
}

func (s *stubSessions) Get(ctx context.Context, token string) (models.Session, error) {
	session, ok := s.tokens[token]
	if !ok {
		return models.Session{}, sessions.ErrSessionNotFound
	}
	return session, nil
}

func (s *stubSessions) Delete(ctx context.Context, token string) error {
	delete(s.tokens, token)
	return nil
}

func newAuthHandler() (*AuthHandler, *stubSessions) {
	sess := newStubSessions()
	h := NewAuthHandler(&stubUsers{user: models.User{ID: "u1", Username: "alice"}}, sess)
	return h, sess
}

func TestLoginSetsSessionCookie(t *testing.T) {
	h, sess := newAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"alice","password":"correct"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected session cookie to be set")
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be http-only")
	}
	if _, err := sess.Get(context.Background(), cookie.Value); err != nil {
		t.Fatalf("cookie token must resolve to a live session: %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h, _ := newAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"alice","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuthInjectsUser(t *testing.T) {
	h, sess := newAuthHandler()
	session, _ := sess.Create(context.Background(), "u1")

	var gotUser models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := CurrentUser(r)
		if !ok {
			t.Fatal("expected user in context")
		}
		gotUser = user
	})

	req := httptest.NewRequest(http.MethodGet, "/api/list", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session.Token})
	rec := httptest.NewRecorder()
	h.RequireAuth(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUser.Username != "alice" {
		t.Fatalf("expected alice in context, got %q", gotUser.Username)
	}
}

func TestRequireAuthRejectsMissingOrBadToken(t *testing.T) {
	h, _ := newAuthHandler()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/list", nil)
	rec := httptest.NewRecorder()
	h.RequireAuth(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/list", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale"})
	rec = httptest.NewRecorder()
	h.RequireAuth(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for stale token, got %d", rec.Code)
	}
}

func TestLogoutDeletesSession(t *testing.T) {
	h, sess := newAuthHandler()
	session, _ := sess.Create(context.Background(), "u1")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session.Token})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, err := sess.Get(context.Background(), session.Token); err == nil {
		t.Fatal("expected session to be deleted")
	}
}
