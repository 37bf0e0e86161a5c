// Package auth implements email/password accounts and opaque session
// tokens backed by a pluggable store.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type (
	User struct {
		ID           string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Session struct {
		Token     string
		UserID    string
		ExpiresAt time.Time
		CreatedAt time.Time
	}

	// Store is the persistence surface the service needs. The SQLite
	// repository and the in-memory store both implement it.
	Store interface {
		CreateUser(ctx context.Context, u User) error
		UserByEmail(ctx context.Context, email string) (User, error)
		CreateSession(ctx context.Context, s Session) error
		SessionByToken(ctx context.Context, token string) (Session, error)
		DeleteSession(ctx context.Context, token string) error
	}

	Service struct {
		store      Store
		ttl        time.Duration
		bcryptCost int
		sessions   *Broadcaster
	}
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidLogin       = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrNoSession          = errors.New("no active session")
)

// ErrNotFound is the sentinel stores return for missing users/sessions.
var ErrNotFound = errors.New("not found")

func NewService(store Store, ttl time.Duration, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:      store,
		ttl:        ttl,
		bcryptCost: bcryptCost,
		sessions:   NewBroadcaster(),
	}
}

// Sessions exposes the session-change broadcaster for subscribers.
func (s *Service) Sessions() *Broadcaster {
	return s.sessions
}

// SignUp creates an account. It does not sign the user in; the client
// logs in afterwards, mirroring the email-confirmation flow of hosted
// auth providers.
func (s *Service) SignUp(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return User{}, ErrMissingCredentials
	}
	if len(password) < 8 {
		return User{}, ErrWeakPassword
	}

	if _, err := s.store.UserByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User signed up", "user_id", u.ID)
	return u, nil
}

// SignInWithPassword verifies credentials and opens a session. Every
// successful sign-in is published to session subscribers.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, ErrMissingCredentials
	}

	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidLogin
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidLogin
	}

	now := time.Now().UTC()
	sess := Session{
		Token:     newToken(),
		UserID:    u.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	slog.InfoContext(ctx, "User signed in", "user_id", u.ID)
	s.sessions.Publish(&sess)
	return sess, nil
}

// Session resolves a bearer token to an unexpired session.
func (s *Service) Session(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}
	sess, err := s.store.SessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("lookup session: %w", err)
	}
	if time.Now().After(sess.ExpiresAt) {
		// Expired tokens are removed eagerly so they don't linger.
		_ = s.store.DeleteSession(ctx, token)
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// SignOut invalidates the token and notifies subscribers with a nil
// session. Signing out an unknown token is not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	s.sessions.Publish(nil)
	return nil
}

func newToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a UUID
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return hex.EncodeToString(b)
}
