package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/bcrypt"

	"watchdeck/models"
)

var (
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Service manages member accounts and credential verification.
type Service struct {
	db *sql.DB
}

// NewService wraps an open database handle.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create registers a new member with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, username, displayName, plainPassword string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, ErrUsernameRequired
	}
	if plainPassword == "" {
		return models.User{}, ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, password_hash)
		VALUES (?, ?, ?, ?)`,
		id, username, strings.TrimSpace(displayName), string(hash),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	return s.Get(ctx, id)
}

// Authenticate verifies the credentials and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, username, plainPassword string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || plainPassword == "" {
		return models.User{}, ErrInvalidCredentials
	}

	var (
		user models.User
		hash string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, COALESCE(display_name, ''), password_hash, created_at
		FROM users WHERE username = ?`, username,
	).Scan(&user.ID, &user.Username, &user.DisplayName, &hash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(plainPassword)) != nil {
		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// Get returns a single user by id.
func (s *Service) Get(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, COALESCE(display_name, ''), created_at
		FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.Username, &user.DisplayName, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List returns all members ordered by username.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, COALESCE(display_name, ''), created_at
		FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0, 8)
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.DisplayName, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// EnsureAdmin creates an initial admin account when no users exist,
// with a generated password printed once to the log.
func (s *Service) EnsureAdmin(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	generated, err := password.Generate(16, 4, 0, false, false)
	if err != nil {
		return fmt.Errorf("generate admin password: %w", err)
	}

	if _, err := s.Create(ctx, "admin", "Admin", generated); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	log.Printf("[users] created initial admin account, password: %s", generated)
	return nil
}
