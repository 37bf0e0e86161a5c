package services

import (
	"context"
	"errors"
	"testing"

	"expenseio/internal/amqp"
	"expenseio/internal/core"
	"expenseio/internal/store/memory"
)

// fakePublisher records publishes and optionally fails them.
type fakePublisher struct {
	calls []string
	fail  bool
}

func (f *fakePublisher) PublishTransactionSync(_ context.Context, id, owner, op string) error {
	f.calls = append(f.calls, op+":"+id)
	if f.fail {
		return errors.New("broker down")
	}
	return nil
}

func testTransaction() core.Transaction {
	return core.Transaction{
		Owner:    "user-1",
		Amount:   core.Money{Cents: 1250},
		Category: "Groceries",
		Date:     core.NewDate(2024, 3, 5),
	}
}

func TestCreatePublishesSync(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewTransactionService(memory.New(), pub)

	saved, err := svc.Create(context.Background(), testTransaction())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("no id assigned")
	}
	if len(pub.calls) != 1 || pub.calls[0] != amqp.OpSync+":"+saved.ID {
		t.Fatalf("unexpected publishes: %v", pub.calls)
	}
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	pub := &fakePublisher{fail: true}
	store := memory.New()
	svc := NewTransactionService(store, pub)

	saved, err := svc.Create(context.Background(), testTransaction())
	if err != nil {
		t.Fatalf("create must not fail on publish error, got %v", err)
	}

	got, err := store.GetTransaction(context.Background(), saved.ID)
	if err != nil || got.ID != saved.ID {
		t.Fatalf("record not persisted: %+v, %v", got, err)
	}
	// Still pending so the sweep can recover it.
	ids, _ := store.ListPendingBackup(context.Background(), 10)
	if len(ids) != 1 || ids[0] != saved.ID {
		t.Fatalf("expected pending backup entry, got %v", ids)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewTransactionService(memory.New(), pub)

	bad := testTransaction()
	bad.Amount = core.Money{Cents: 0}
	if _, err := svc.Create(context.Background(), bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(pub.calls) != 0 {
		t.Fatalf("nothing should be published for rejected input")
	}
}

func TestUpdateAndDeletePublish(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewTransactionService(memory.New(), pub)
	ctx := context.Background()

	saved, err := svc.Create(ctx, testTransaction())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	saved.Description = "weekly shop"
	if err := svc.Update(ctx, saved); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.Delete(ctx, saved.ID, saved.Owner); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []string{
		amqp.OpSync + ":" + saved.ID,
		amqp.OpSync + ":" + saved.ID,
		amqp.OpDelete + ":" + saved.ID,
	}
	if len(pub.calls) != len(want) {
		t.Fatalf("got %v, want %v", pub.calls, want)
	}
	for i := range want {
		if pub.calls[i] != want[i] {
			t.Fatalf("publish %d: got %q, want %q", i, pub.calls[i], want[i])
		}
	}
}

func TestNilPublisherSkipsSync(t *testing.T) {
	svc := NewTransactionService(memory.New(), nil)
	if _, err := svc.Create(context.Background(), testTransaction()); err != nil {
		t.Fatalf("create with nil publisher: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close with nil publisher: %v", err)
	}
}
