package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"chantierpro/internal/analytics"
	"chantierpro/internal/core"
)

// MemoryStore is the non-persistent backend. It backs tests and the
// default dev setup where no database path is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]core.Document
	expenses  map[string]core.Expense
	payments  map[string]core.Payment
	projects  map[string]core.Project
	clients   map[string]core.Client
	journal   map[string]*journalEntry
}

type journalEntry struct {
	enqueuedAt  time.Time
	exported    bool
	exportError bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]core.Document),
		expenses:  make(map[string]core.Expense),
		payments:  make(map[string]core.Payment),
		projects:  make(map[string]core.Project),
		clients:   make(map[string]core.Client),
		journal:   make(map[string]*journalEntry),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateDocument(_ context.Context, d core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[d.ID] = d
	return nil
}

func (s *MemoryStore) UpdateDocument(_ context.Context, d core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[d.ID]; !ok {
		return core.ErrUnknownDocument
	}
	s.documents[d.ID] = d
	return nil
}

func (s *MemoryStore) GetDocument(_ context.Context, id string) (core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return core.Document{}, core.ErrUnknownDocument
	}
	return d, nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return core.ErrUnknownDocument
	}
	delete(s.documents, id)
	return nil
}

func (s *MemoryStore) ListDocuments(_ context.Context) ([]core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Document, 0, len(s.documents))
	for _, d := range s.documents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[e.ID] = e
	return nil
}

func (s *MemoryStore) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *MemoryStore) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreatePayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
	return nil
}

func (s *MemoryStore) DeletePayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return ErrNotFound
	}
	delete(s.payments, id)
	return nil
}

func (s *MemoryStore) ListPayments(_ context.Context) ([]core.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreateProject(_ context.Context, p core.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
	return nil
}

func (s *MemoryStore) UpdateProject(_ context.Context, p core.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return ErrNotFound
	}
	s.projects[p.ID] = p
	return nil
}

func (s *MemoryStore) GetProject(_ context.Context, id string) (core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return core.Project{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) ListProjects(_ context.Context) ([]core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreateClient(_ context.Context, c core.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
	return nil
}

func (s *MemoryStore) GetClient(_ context.Context, id string) (core.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return core.Client{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListClients(_ context.Context) ([]core.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Snapshot(ctx context.Context) (analytics.Snapshot, error) {
	var snap analytics.Snapshot
	var err error
	if snap.Documents, err = s.ListDocuments(ctx); err != nil {
		return snap, err
	}
	if snap.Expenses, err = s.ListExpenses(ctx); err != nil {
		return snap, err
	}
	if snap.Payments, err = s.ListPayments(ctx); err != nil {
		return snap, err
	}
	if snap.Projects, err = s.ListProjects(ctx); err != nil {
		return snap, err
	}
	snap.Clients, err = s.ListClients(ctx)
	return snap, err
}

func (s *MemoryStore) EnqueueJournal(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal[documentID] = &journalEntry{enqueuedAt: time.Now()}
	return nil
}

func (s *MemoryStore) PendingJournal(_ context.Context, limit int) ([]PendingJournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []PendingJournalEntry
	for id, e := range s.journal {
		if e.exported || e.exportError {
			continue
		}
		out = append(out, PendingJournalEntry{DocumentID: id, EnqueuedAt: e.enqueuedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EnqueuedAt.Equal(out[j].EnqueuedAt) {
			return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkJournalExported(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.journal[documentID]
	if !ok {
		return ErrNotFound
	}
	e.exported = true
	return nil
}

func (s *MemoryStore) MarkJournalError(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.journal[documentID]
	if !ok {
		return ErrNotFound
	}
	e.exportError = true
	return nil
}
