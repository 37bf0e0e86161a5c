// Package services orchestrates writes across the store and the backup
// message queue.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"expenseio/internal/amqp"
	"expenseio/internal/backend"
	"expenseio/internal/core"
)

// SyncPublisher publishes backup notifications. *amqp.Client implements
// it; a nil publisher disables the pipeline.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id, owner, op string) error
}

// TransactionService writes transactions to the store and notifies the
// backup worker. The store write is the source of truth: a failed
// publish never fails the request, the worker's catch-up sweep recovers
// it later.
type TransactionService struct {
	store     backend.Store
	publisher SyncPublisher
}

func NewTransactionService(store backend.Store, publisher SyncPublisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher}
}

func (s *TransactionService) List(ctx context.Context, owner string) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, owner)
}

// Create validates, persists, and queues the new record for backup.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	saved, err := s.store.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, saved.ID, saved.Owner, amqp.OpSync)
	return saved, nil
}

func (s *TransactionService) Update(ctx context.Context, t core.Transaction) error {
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return err
	}

	s.publish(ctx, t.ID, t.Owner, amqp.OpSync)
	return nil
}

func (s *TransactionService) Delete(ctx context.Context, id, owner string) error {
	if err := s.store.DeleteTransaction(ctx, id, owner); err != nil {
		return err
	}

	s.publish(ctx, id, owner, amqp.OpDelete)
	return nil
}

func (s *TransactionService) publish(ctx context.Context, id, owner, op string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message", "id", id, "op", op)
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, id, owner, op); err != nil {
		// The record is already persisted; the sweep picks it up.
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "op", op, "error", err)
	}
}

// Close releases the publisher connection when it owns one.
func (s *TransactionService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
