package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chantierpro/internal/amqp"
	"chantierpro/internal/core"
	"chantierpro/internal/storage"
)

// EventPublisher is the slice of the AMQP client the services need.
type EventPublisher interface {
	PublishDocumentEvent(ctx context.Context, documentID, event string) error
}

// DocumentService orchestrates document writes: numbering, totals and the
// change notifications the export worker consumes.
type DocumentService struct {
	store     storage.Store
	publisher EventPublisher
	now       func() time.Time
}

func NewDocumentService(store storage.Store, publisher EventPublisher) *DocumentService {
	return &DocumentService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateDocument assigns an ID and numero, computes totals and persists the
// document. The numero is only generated when the caller left it empty.
func (s *DocumentService) CreateDocument(ctx context.Context, d core.Document) (core.Document, error) {
	if d.Date.IsZero() {
		d.Date = s.now()
	}
	if err := d.Validate(); err != nil {
		return core.Document{}, fmt.Errorf("validate document: %w", err)
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = core.StatusDraft
	}
	if d.Numero == "" {
		existing, err := s.store.ListDocuments(ctx)
		if err != nil {
			return core.Document{}, fmt.Errorf("list documents for numbering: %w", err)
		}
		d.Numero = core.NextNumero(d.Type, existing, s.now())
	}

	d.Totals = core.ComputeTotals(d)

	if err := s.store.CreateDocument(ctx, d); err != nil {
		return core.Document{}, fmt.Errorf("save document: %w", err)
	}

	s.publish(ctx, d.ID, amqp.EventUpdated)
	if d.Status.IsAccepted() {
		s.acceptDocument(ctx, d)
	}
	return d, nil
}

// UpdateDocument recomputes totals and persists the new state. Crossing
// into an accepted status queues the document for accounting export.
func (s *DocumentService) UpdateDocument(ctx context.Context, d core.Document) (core.Document, error) {
	if err := d.Validate(); err != nil {
		return core.Document{}, fmt.Errorf("validate document: %w", err)
	}

	prev, err := s.store.GetDocument(ctx, d.ID)
	if err != nil {
		return core.Document{}, err
	}

	d.Totals = core.ComputeTotals(d)
	if err := s.store.UpdateDocument(ctx, d); err != nil {
		return core.Document{}, fmt.Errorf("update document: %w", err)
	}

	s.publish(ctx, d.ID, amqp.EventUpdated)
	if d.Status.IsAccepted() && !prev.Status.IsAccepted() {
		s.acceptDocument(ctx, d)
	}
	return d, nil
}

// ChangeStatus moves a document through its lifecycle without touching its
// contents.
func (s *DocumentService) ChangeStatus(ctx context.Context, id string, status core.DocumentStatus) (core.Document, error) {
	d, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return core.Document{}, err
	}
	if d.Status == status {
		return d, nil
	}
	d.Status = status
	return s.UpdateDocument(ctx, d)
}

func (s *DocumentService) DeleteDocument(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, id, amqp.EventDeleted)
	return nil
}

func (s *DocumentService) GetDocument(ctx context.Context, id string) (core.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// ListDocuments returns documents matching the filter and search, ordered
// by the given sort key.
func (s *DocumentService) ListDocuments(ctx context.Context, filter, search, sortBy string) ([]core.Document, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	docs = core.FilterDocuments(docs, filter, search)
	return core.SortDocuments(docs, sortBy), nil
}

// acceptDocument queues the journal export and notifies the worker. Both
// are best-effort: the accepted state is already persisted and the worker's
// periodic scan picks up anything missed here.
func (s *DocumentService) acceptDocument(ctx context.Context, d core.Document) {
	if err := s.store.EnqueueJournal(ctx, d.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to queue journal export",
			"document_id", d.ID, "error", err)
	}
	s.publish(ctx, d.ID, amqp.EventAccepted)
}

func (s *DocumentService) publish(ctx context.Context, id, event string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, skipping event",
			"document_id", id, "event", event)
		return
	}
	if err := s.publisher.PublishDocumentEvent(ctx, id, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish document event",
			"document_id", id, "event", event, "error", err)
	}
}
