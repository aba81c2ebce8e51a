package worker

import (
	"context"
	"testing"
	"time"

	"chantierpro/internal/amqp"
	"chantierpro/internal/core"
	"chantierpro/internal/export/memory"
	"chantierpro/internal/storage"
)

func seedAcceptedDocument(t *testing.T, store *storage.MemoryStore) core.Document {
	t.Helper()
	ctx := context.Background()

	if err := store.CreateClient(ctx, core.Client{ID: "c1", FirstName: "Marie", LastName: "Durand"}); err != nil {
		t.Fatalf("seed client: %v", err)
	}

	d := core.Document{
		ID:         "d1",
		Type:       core.Devis,
		Numero:     "DEV-2026-00007",
		ClientID:   "c1",
		Status:     core.StatusAccepted,
		Date:       time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		VATDefault: 20,
		Sections: []core.Section{{
			Lines: []core.LineItem{{Designation: "Ravalement", Quantity: 1, UnitPrice: core.Money{Cents: 500000}}},
		}},
	}
	d.Totals = core.ComputeTotals(d)
	if err := store.CreateDocument(ctx, d); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	if err := store.EnqueueJournal(ctx, d.ID); err != nil {
		t.Fatalf("seed queue: %v", err)
	}
	return d
}

func TestHandleDocumentEventExports(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	journal := memory.New()
	w := NewExportWorker(store, journal, 10)

	d := seedAcceptedDocument(t, store)

	if err := w.HandleDocumentEvent(ctx, amqp.NewDocumentEventMessage(d.ID, amqp.EventAccepted)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	entries := journal.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Numero != "DEV-2026-00007" || e.ClientName != "Marie Durand" {
		t.Fatalf("entry = %+v", e)
	}
	if e.HT.Cents != 500000 || e.TTC.Cents != 600000 {
		t.Fatalf("entry amounts = %d HT / %d TTC", e.HT.Cents, e.TTC.Cents)
	}

	pending, _ := store.PendingJournal(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("queue not drained: %v", pending)
	}
}

func TestHandleDocumentEventIgnoresOtherEvents(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	journal := memory.New()
	w := NewExportWorker(store, journal, 10)

	if err := w.HandleDocumentEvent(ctx, amqp.NewDocumentEventMessage("d1", amqp.EventUpdated)); err != nil {
		t.Fatalf("handle updated: %v", err)
	}
	if len(journal.Entries()) != 0 {
		t.Fatal("update event must not export")
	}
}

func TestProcessPendingRecoversQueue(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	journal := memory.New()
	w := NewExportWorker(store, journal, 10)

	seedAcceptedDocument(t, store)

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(journal.Entries()) != 1 {
		t.Fatalf("entries = %d, want 1", len(journal.Entries()))
	}

	// A second pass finds nothing to do.
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(journal.Entries()) != 1 {
		t.Fatal("pending entry exported twice")
	}
}

func TestExportVanishedDocumentDropsEntry(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	journal := memory.New()
	w := NewExportWorker(store, journal, 10)

	if err := store.EnqueueJournal(ctx, "ghost"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(journal.Entries()) != 0 {
		t.Fatal("vanished document exported")
	}
	pending, _ := store.PendingJournal(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("ghost entry still pending: %v", pending)
	}
}
