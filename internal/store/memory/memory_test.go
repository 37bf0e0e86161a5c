package memory

import (
	"context"
	"errors"
	"testing"

	"expenseio/internal/auth"
	"expenseio/internal/core"
)

func TestListTransactionsSortedAndScoped(t *testing.T) {
	s := New()
	ctx := context.Background()

	insert := func(owner string, day int) core.Transaction {
		t.Helper()
		saved, err := s.InsertTransaction(ctx, core.Transaction{
			Owner:    owner,
			Amount:   core.Money{Cents: 100},
			Category: "Groceries",
			Date:     core.NewDate(2024, 3, day),
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		return saved
	}

	later := insert("user-1", 20)
	earlier := insert("user-1", 10)
	insert("user-2", 1)

	txs, err := s.ListTransactions(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 || txs[0].ID != earlier.ID || txs[1].ID != later.ID {
		t.Fatalf("wrong order or scope: %+v", txs)
	}
}

func TestUpdateScopedToOwner(t *testing.T) {
	s := New()
	ctx := context.Background()

	saved, err := s.InsertTransaction(ctx, core.Transaction{
		Owner:    "user-1",
		Amount:   core.Money{Cents: 100},
		Category: "Groceries",
		Date:     core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	saved.Owner = "user-2"
	if err := s.UpdateTransaction(ctx, saved); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong owner, got %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateSession(ctx, auth.Session{Token: "tok", UserID: "u1"}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	sess, err := s.SessionByToken(ctx, "tok")
	if err != nil || sess.UserID != "u1" {
		t.Fatalf("session lookup: %+v, %v", sess, err)
	}
	if err := s.DeleteSession(ctx, "tok"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.SessionByToken(ctx, "tok"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
