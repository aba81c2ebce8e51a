package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chantierpro/internal/amqp"
	"chantierpro/internal/core"
	"chantierpro/internal/export"
	"chantierpro/internal/storage"
)

// ExportWorker pushes accepted documents to the accounting journal. It is
// driven by AMQP document events, with a periodic scan of the journal queue
// as a backup for lost messages.
type ExportWorker struct {
	store     storage.Store
	journal   export.JournalWriter
	batchSize int
}

func NewExportWorker(store storage.Store, journal export.JournalWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		journal:   journal,
		batchSize: batchSize,
	}
}

// HandleDocumentEvent processes one AMQP notification. Only acceptance
// events trigger an export; update and delete events only exist so other
// consumers can follow the document stream.
func (w *ExportWorker) HandleDocumentEvent(ctx context.Context, msg *amqp.DocumentEventMessage) error {
	if msg.Event != amqp.EventAccepted {
		slog.DebugContext(ctx, "Ignoring document event",
			"document_id", msg.DocumentID, "event", msg.Event)
		return nil
	}
	return w.exportDocument(ctx, msg.DocumentID)
}

// ProcessPending exports queued documents that never got an AMQP delivery.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.PendingJournal(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending journal entries: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending journal exports", "count", len(pending))

	for _, entry := range pending {
		if err := w.exportDocument(ctx, entry.DocumentID); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending document",
				"document_id", entry.DocumentID, "error", err)
		}
	}
	return nil
}

// Run consumes periodically until ctx is done. The caller typically runs it
// alongside the AMQP consumer.
func (w *ExportWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// One pass at startup recovers anything missed during downtime.
	if err := w.ProcessPending(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup journal scan failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic journal scan failed", "error", err)
			}
		}
	}
}

func (w *ExportWorker) exportDocument(ctx context.Context, id string) error {
	d, err := w.store.GetDocument(ctx, id)
	if errors.Is(err, core.ErrUnknownDocument) {
		// Deleted between acceptance and export; drop the queue entry.
		slog.WarnContext(ctx, "Accepted document vanished before export", "document_id", id)
		if markErr := w.store.MarkJournalError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark journal error", "document_id", id, "error", markErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	clientName := ""
	if d.ClientID != "" {
		if c, err := w.store.GetClient(ctx, d.ClientID); err == nil {
			clientName = c.DisplayName()
		}
	}

	ref, err := w.journal.AppendEntry(ctx, export.EntryFromDocument(d, clientName))
	if err != nil {
		if markErr := w.store.MarkJournalError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark journal error", "document_id", id, "error", markErr)
		}
		return fmt.Errorf("append journal entry: %w", err)
	}

	if err := w.store.MarkJournalExported(ctx, id); err != nil {
		// The export itself worked; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark journal exported", "document_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Document exported to journal",
		"document_id", id,
		"numero", d.Numero,
		"journal_ref", ref,
		"ttc_cents", d.Totals.TTCGross.Cents)

	return nil
}
