package storage

import (
	"context"
	"errors"
	"time"

	"chantierpro/internal/analytics"
	"chantierpro/internal/core"
)

var ErrNotFound = errors.New("not found")

// PendingJournalEntry is a queued accounting export, minimal on purpose:
// the worker re-reads the document before pushing it.
type PendingJournalEntry struct {
	DocumentID string
	EnqueuedAt time.Time
}

// Store is the persistence surface the services and the HTTP layer depend
// on. Both the SQLite and the in-memory backends implement it.
type Store interface {
	CreateDocument(ctx context.Context, d core.Document) error
	UpdateDocument(ctx context.Context, d core.Document) error
	GetDocument(ctx context.Context, id string) (core.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context) ([]core.Document, error)

	CreateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	ListExpenses(ctx context.Context) ([]core.Expense, error)

	CreatePayment(ctx context.Context, p core.Payment) error
	DeletePayment(ctx context.Context, id string) error
	ListPayments(ctx context.Context) ([]core.Payment, error)

	CreateProject(ctx context.Context, p core.Project) error
	UpdateProject(ctx context.Context, p core.Project) error
	GetProject(ctx context.Context, id string) (core.Project, error)
	ListProjects(ctx context.Context) ([]core.Project, error)

	CreateClient(ctx context.Context, c core.Client) error
	GetClient(ctx context.Context, id string) (core.Client, error)
	ListClients(ctx context.Context) ([]core.Client, error)

	// Snapshot loads every collection for the analytics aggregator.
	Snapshot(ctx context.Context) (analytics.Snapshot, error)

	EnqueueJournal(ctx context.Context, documentID string) error
	PendingJournal(ctx context.Context, limit int) ([]PendingJournalEntry, error)
	MarkJournalExported(ctx context.Context, documentID string) error
	MarkJournalError(ctx context.Context, documentID string) error

	Close() error
}
