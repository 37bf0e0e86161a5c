// Package worker drains the backup queue into the spreadsheet mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expenseio/internal/amqp"
	"expenseio/internal/auth"
	"expenseio/internal/backend"
	"expenseio/internal/core"
)

// SheetsAppender is the spreadsheet surface the worker writes to.
type SheetsAppender interface {
	Append(ctx context.Context, t core.Transaction, op string) error
	AppendTombstone(ctx context.Context, id, owner string) error
}

type BackupWorker struct {
	store  backend.Store
	sheets SheetsAppender
}

func NewBackupWorker(store backend.Store, sheets SheetsAppender) *BackupWorker {
	return &BackupWorker{store: store, sheets: sheets}
}

// HandleMessage mirrors one queued notification. Returning an error
// requeues the message.
func (w *BackupWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	switch msg.Op {
	case amqp.OpSync:
		return w.syncTransaction(ctx, msg.ID)
	case amqp.OpDelete:
		if err := w.sheets.AppendTombstone(ctx, msg.ID, msg.Owner); err != nil {
			return fmt.Errorf("append tombstone: %w", err)
		}
		slog.InfoContext(ctx, "Mirrored deletion to backup sheet", "id", msg.ID)
		return nil
	default:
		// Unknown ops are dropped, requeueing them cannot help.
		slog.WarnContext(ctx, "Dropping message with unknown op", "op", msg.Op, "id", msg.ID)
		return nil
	}
}

func (w *BackupWorker) syncTransaction(ctx context.Context, id string) error {
	t, err := w.store.GetTransaction(ctx, id)
	if errors.Is(err, auth.ErrNotFound) {
		// Deleted between publish and consumption. The delete message
		// carries its own tombstone.
		slog.InfoContext(ctx, "Transaction gone before sync, skipping", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", id, err)
	}

	if err := w.sheets.Append(ctx, t, amqp.OpSync); err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}
	if err := w.store.MarkBackedUp(ctx, id); err != nil {
		// The row is in the sheet; the sweep may mirror it once more,
		// which the append-only log tolerates.
		slog.WarnContext(ctx, "Failed to mark transaction backed up", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored transaction to backup sheet", "id", id)
	return nil
}

// ProcessPending mirrors records whose publish was lost, up to batch of
// them. It returns the number successfully mirrored.
func (w *BackupWorker) ProcessPending(ctx context.Context, batch int) (int, error) {
	ids, err := w.store.ListPendingBackup(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("list pending backup: %w", err)
	}

	done := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if err := w.syncTransaction(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Catch-up sync failed", "id", id, "error", err)
			continue
		}
		done++
	}
	return done, nil
}

// RunSweep periodically re-drives pending records until ctx is
// cancelled. It sweeps once immediately on startup.
func (w *BackupWorker) RunSweep(ctx context.Context, interval time.Duration, batch int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.sweep(ctx, batch)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping catch-up sweep", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx, batch)
		}
	}
}

func (w *BackupWorker) sweep(ctx context.Context, batch int) {
	n, err := w.ProcessPending(ctx, batch)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "Catch-up sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Catch-up sweep mirrored pending transactions", "count", n)
	}
}
