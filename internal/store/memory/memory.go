// Package memory is an in-memory store used by tests and the "memory"
// data backend. It implements the same surface as the SQLite repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"expenseio/internal/auth"
	"expenseio/internal/core"
)

type Store struct {
	mu       sync.Mutex
	txs      []core.Transaction
	users    map[string]auth.User // keyed by email
	sessions map[string]auth.Session
	pending  map[string]bool
}

func New() *Store {
	return &Store{
		users:    make(map[string]auth.User),
		sessions: make(map[string]auth.Session),
		pending:  make(map[string]bool),
	}
}

// ListTransactions returns a copy of the owner's snapshot in ascending
// date order, matching the SQLite repository's contract.
func (s *Store) ListTransactions(_ context.Context, owner string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, t := range s.txs {
		if t.Owner == owner {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, auth.ErrNotFound)
}

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	s.txs = append(s.txs, t)
	s.pending[t.ID] = true
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == t.ID && s.txs[i].Owner == t.Owner {
			s.txs[i] = t
			s.pending[t.ID] = true
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", t.ID, auth.ErrNotFound)
}

func (s *Store) DeleteTransaction(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == id && s.txs[i].Owner == owner {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			delete(s.pending, id)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, auth.ErrNotFound)
}

func (s *Store) ListPendingBackup(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, t := range s.txs {
		if len(ids) >= limit {
			break
		}
		if s.pending[t.ID] {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

func (s *Store) MarkBackedUp(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	return nil
}

// --- auth.Store ---

func (s *Store) CreateUser(_ context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return fmt.Errorf("user %s already exists", u.Email)
	}
	s.users[u.Email] = u
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateSession(_ context.Context, sess auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
	return nil
}

func (s *Store) SessionByToken(_ context.Context, token string) (auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return auth.Session{}, auth.ErrNotFound
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return auth.ErrNotFound
	}
	delete(s.sessions, token)
	return nil
}
