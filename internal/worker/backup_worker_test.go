package worker

import (
	"context"
	"errors"
	"testing"

	"expenseio/internal/amqp"
	"expenseio/internal/core"
	"expenseio/internal/store/memory"
)

// fakeSheets records appended rows and optionally fails.
type fakeSheets struct {
	rows       []string // "op:id"
	tombstones []string
	fail       bool
}

func (f *fakeSheets) Append(_ context.Context, t core.Transaction, op string) error {
	if f.fail {
		return errors.New("sheets unavailable")
	}
	f.rows = append(f.rows, op+":"+t.ID)
	return nil
}

func (f *fakeSheets) AppendTombstone(_ context.Context, id, _ string) error {
	if f.fail {
		return errors.New("sheets unavailable")
	}
	f.tombstones = append(f.tombstones, id)
	return nil
}

func seedTransaction(t *testing.T, store *memory.Store) core.Transaction {
	t.Helper()
	saved, err := store.InsertTransaction(context.Background(), core.Transaction{
		Owner:    "user-1",
		Amount:   core.Money{Cents: 1500},
		Category: "Groceries",
		Date:     core.NewDate(2024, 3, 5),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return saved
}

func TestHandleSyncMessage(t *testing.T) {
	store := memory.New()
	sheets := &fakeSheets{}
	w := NewBackupWorker(store, sheets)
	ctx := context.Background()

	saved := seedTransaction(t, store)
	msg := amqp.NewTransactionSyncMessage(saved.ID, saved.Owner, amqp.OpSync)
	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(sheets.rows) != 1 || sheets.rows[0] != amqp.OpSync+":"+saved.ID {
		t.Fatalf("unexpected rows: %v", sheets.rows)
	}
	ids, _ := store.ListPendingBackup(ctx, 10)
	if len(ids) != 0 {
		t.Fatalf("record still pending after sync: %v", ids)
	}
}

func TestHandleSyncMessageMissingRecord(t *testing.T) {
	w := NewBackupWorker(memory.New(), &fakeSheets{})
	msg := amqp.NewTransactionSyncMessage("gone", "user-1", amqp.OpSync)
	// A record deleted before consumption is skipped, not requeued.
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("expected skip, got %v", err)
	}
}

func TestHandleDeleteMessage(t *testing.T) {
	sheets := &fakeSheets{}
	w := NewBackupWorker(memory.New(), sheets)

	msg := amqp.NewTransactionSyncMessage("tx-1", "user-1", amqp.OpDelete)
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sheets.tombstones) != 1 || sheets.tombstones[0] != "tx-1" {
		t.Fatalf("unexpected tombstones: %v", sheets.tombstones)
	}
}

func TestHandleSheetsFailureRequeues(t *testing.T) {
	store := memory.New()
	w := NewBackupWorker(store, &fakeSheets{fail: true})

	saved := seedTransaction(t, store)
	msg := amqp.NewTransactionSyncMessage(saved.ID, saved.Owner, amqp.OpSync)
	if err := w.HandleMessage(context.Background(), msg); err == nil {
		t.Fatalf("expected error so the message is requeued")
	}
	ids, _ := store.ListPendingBackup(context.Background(), 10)
	if len(ids) != 1 {
		t.Fatalf("record must stay pending after failure: %v", ids)
	}
}

func TestProcessPending(t *testing.T) {
	store := memory.New()
	sheets := &fakeSheets{}
	w := NewBackupWorker(store, sheets)
	ctx := context.Background()

	seedTransaction(t, store)
	seedTransaction(t, store)

	n, err := w.ProcessPending(ctx, 10)
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if n != 2 {
		t.Fatalf("mirrored %d, want 2", n)
	}
	if len(sheets.rows) != 2 {
		t.Fatalf("rows: %v", sheets.rows)
	}

	// Second sweep finds nothing.
	n, err = w.ProcessPending(ctx, 10)
	if err != nil || n != 0 {
		t.Fatalf("expected empty sweep, got n=%d err=%v", n, err)
	}
}

func TestProcessPendingRespectsBatch(t *testing.T) {
	store := memory.New()
	w := NewBackupWorker(store, &fakeSheets{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedTransaction(t, store)
	}
	n, err := w.ProcessPending(ctx, 2)
	if err != nil || n != 2 {
		t.Fatalf("got n=%d err=%v, want 2", n, err)
	}
	ids, _ := store.ListPendingBackup(ctx, 10)
	if len(ids) != 1 {
		t.Fatalf("one record should remain pending, got %v", ids)
	}
}
