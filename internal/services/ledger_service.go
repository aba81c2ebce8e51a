package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"chantierpro/internal/core"
	"chantierpro/internal/storage"
)

// LedgerService handles the flat collections around documents: expenses,
// payments, projects and clients.
type LedgerService struct {
	store storage.Store
}

func NewLedgerService(store storage.Store) *LedgerService {
	return &LedgerService{store: store}
}

func (s *LedgerService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validate expense: %w", err)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	return e, nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id string) error {
	return s.store.DeleteExpense(ctx, id)
}

func (s *LedgerService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx)
}

func (s *LedgerService) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, fmt.Errorf("validate payment: %w", err)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}
	return p, nil
}

func (s *LedgerService) DeletePayment(ctx context.Context, id string) error {
	return s.store.DeletePayment(ctx, id)
}

func (s *LedgerService) ListPayments(ctx context.Context) ([]core.Payment, error) {
	return s.store.ListPayments(ctx)
}

func (s *LedgerService) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = core.ProjectProspect
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return core.Project{}, fmt.Errorf("save project: %w", err)
	}
	return p, nil
}

func (s *LedgerService) UpdateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return core.Project{}, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

func (s *LedgerService) ListProjects(ctx context.Context) ([]core.Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *LedgerService) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.store.CreateClient(ctx, c); err != nil {
		return core.Client{}, fmt.Errorf("save client: %w", err)
	}
	return c, nil
}

func (s *LedgerService) ListClients(ctx context.Context) ([]core.Client, error) {
	return s.store.ListClients(ctx)
}
