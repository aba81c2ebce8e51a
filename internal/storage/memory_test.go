package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"chantierpro/internal/core"
)

var _ Store = (*MemoryStore)(nil)
var _ Store = (*SQLiteRepository)(nil)

func TestMemoryStoreDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	d := core.Document{
		ID:     "d1",
		Type:   core.Devis,
		Numero: "DEV-2026-00001",
		Status: core.StatusDraft,
		Date:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := s.CreateDocument(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Numero != d.Numero {
		t.Fatalf("numero = %q, want %q", got.Numero, d.Numero)
	}

	d.Status = core.StatusSent
	if err := s.UpdateDocument(ctx, d); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.GetDocument(ctx, "d1")
	if got.Status != core.StatusSent {
		t.Fatalf("status = %q after update", got.Status)
	}

	if err := s.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetDocument(ctx, "d1"); !errors.Is(err, core.ErrUnknownDocument) {
		t.Fatalf("get after delete: %v, want ErrUnknownDocument", err)
	}
	if err := s.UpdateDocument(ctx, d); !errors.Is(err, core.ErrUnknownDocument) {
		t.Fatalf("update missing: %v, want ErrUnknownDocument", err)
	}
}

func TestMemoryStoreListOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i, day := range []int{5, 20, 12} {
		s.CreateDocument(ctx, core.Document{
			ID:   string(rune('a' + i)),
			Type: core.Devis,
			Date: time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
		})
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("len = %d", len(docs))
	}
	// Newest first.
	if docs[0].ID != "b" || docs[1].ID != "c" || docs[2].ID != "a" {
		t.Fatalf("order = %s %s %s", docs[0].ID, docs[1].ID, docs[2].ID)
	}
}

func TestMemoryStoreSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	s.CreateDocument(ctx, core.Document{ID: "d1", Type: core.Devis, Date: now})
	s.CreateExpense(ctx, core.Expense{ID: "e1", Date: now, Amount: core.Money{Cents: 100}})
	s.CreatePayment(ctx, core.Payment{ID: "p1", Date: now, Amount: core.Money{Cents: 200}})
	s.CreateProject(ctx, core.Project{ID: "pr1", Name: "Chantier"})
	s.CreateClient(ctx, core.Client{ID: "c1", LastName: "Dupont"})

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Documents) != 1 || len(snap.Expenses) != 1 || len(snap.Payments) != 1 ||
		len(snap.Projects) != 1 || len(snap.Clients) != 1 {
		t.Fatalf("snapshot incomplete: %+v", snap)
	}
}

func TestMemoryStoreJournalQueue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.EnqueueJournal(ctx, "d1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := s.EnqueueJournal(ctx, "d2"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	pending, err := s.PendingJournal(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	if err := s.MarkJournalExported(ctx, "d1"); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	if err := s.MarkJournalError(ctx, "d2"); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	pending, _ = s.PendingJournal(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("pending after marks = %d, want 0", len(pending))
	}

	if err := s.MarkJournalExported(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("mark missing: %v, want ErrNotFound", err)
	}
}
