package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-password/password"

	"watchdeck/models"
)

var ErrSessionNotFound = errors.New("session not found or expired")

const tokenLength = 48

// Service issues and validates opaque session tokens.
type Service struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewService wraps an open database handle; ttl is the session
// lifetime from creation.
func NewService(db *sql.DB, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{db: db, ttl: ttl, now: time.Now}
}

// Create issues a new session for the user.
func (s *Service) Create(ctx context.Context, userID string) (models.Session, error) {
	token, err := password.Generate(tokenLength, 10, 0, false, true)
	if err != nil {
		return models.Session{}, fmt.Errorf("generate session token: %w", err)
	}

	session := models.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: s.now().UTC(),
		ExpiresAt: s.now().UTC().Add(s.ttl),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)`,
		session.Token, session.UserID, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return models.Session{}, fmt.Errorf("create session: %w", err)
	}

	return session, nil
}

// Get returns the session for a token. Expired sessions are removed
// and reported as not found.
func (s *Service) Get(ctx context.Context, token string) (models.Session, error) {
	if token == "" {
		return models.Session{}, ErrSessionNotFound
	}

	var session models.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, created_at, expires_at
		FROM sessions WHERE token = ?`, token,
	).Scan(&session.Token, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}

	if session.Expired(s.now()) {
		_ = s.Delete(ctx, token)
		return models.Session{}, ErrSessionNotFound
	}

	return session, nil
}

// Delete removes a session, logging the user out.
func (s *Service) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes all sessions past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
