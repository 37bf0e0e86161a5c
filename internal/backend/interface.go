// Package backend selects and constructs the data store the application
// runs on.
package backend

import (
	"context"

	"expenseio/internal/auth"
	"expenseio/internal/core"
)

// Store is the unified persistence surface: transaction records plus the
// account and session tables the auth service needs.
type Store interface {
	ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id, owner string) error

	// Backup bookkeeping for the spreadsheet sync pipeline.
	ListPendingBackup(ctx context.Context, limit int) ([]string, error)
	MarkBackedUp(ctx context.Context, id string) error

	auth.Store
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result holds the constructed store and its optional cleanup.
type Result struct {
	Store   Store
	Cleanup CleanupFunc
}

// Type names a supported backend.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
