package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]User // keyed by email
	sessions map[string]Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]User), sessions: make(map[string]Session)}
}

func (f *fakeStore) CreateUser(_ context.Context, u User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Email] = u
	return nil
}

func (f *fakeStore) UserByEmail(_ context.Context, email string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateSession(_ context.Context, s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.Token] = s
	return nil
}

func (f *fakeStore) SessionByToken(_ context.Context, token string) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[token]; !ok {
		return ErrNotFound
	}
	delete(f.sessions, token)
	return nil
}

func newTestService() *Service {
	// Minimum bcrypt cost keeps the tests fast.
	return NewService(newFakeStore(), time.Hour, 4)
}

func TestSignUpValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "", "password123"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := svc.SignUp(ctx, "a@b.com", ""); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := svc.SignUp(ctx, "a@b.com", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	u, err := svc.SignUp(ctx, "User@Example.com", "password123")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.Email != "user@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}

	if _, err := svc.SignUp(ctx, "user@example.com", "password123"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	sess, err := svc.SignInWithPassword(ctx, "user@example.com", "password123")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if sess.UserID != u.ID || sess.Token == "" {
		t.Fatalf("bad session: %+v", sess)
	}

	got, err := svc.Session(ctx, sess.Token)
	if err != nil || got.UserID != u.ID {
		t.Fatalf("session lookup: %+v, %v", got, err)
	}

	if _, err := svc.SignInWithPassword(ctx, "user@example.com", "wrongpass"); !errors.Is(err, ErrInvalidLogin) {
		t.Fatalf("expected ErrInvalidLogin, got %v", err)
	}
	if _, err := svc.SignInWithPassword(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidLogin) {
		t.Fatalf("expected ErrInvalidLogin for unknown user, got %v", err)
	}
}

func TestSignOut(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "a@b.com", "password123"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	sess, err := svc.SignInWithPassword(ctx, "a@b.com", "password123")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}

	if err := svc.SignOut(ctx, sess.Token); err != nil {
		t.Fatalf("signout: %v", err)
	}
	if _, err := svc.Session(ctx, sess.Token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after signout, got %v", err)
	}
	// Unknown token is not an error.
	if err := svc.SignOut(ctx, "bogus"); err != nil {
		t.Fatalf("signout of unknown token: %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, -time.Minute, 4) // already expired on creation
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "a@b.com", "password123"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	sess, err := svc.SignInWithPassword(ctx, "a@b.com", "password123")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if _, err := svc.Session(ctx, sess.Token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for expired token, got %v", err)
	}
}
