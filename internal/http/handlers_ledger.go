package http

import (
	"errors"
	"log/slog"
	"net/http"

	"chantierpro/internal/core"
	"chantierpro/internal/storage"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.ledger.ListExpenses(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list expenses")
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var e core.Expense
	if err := decodeJSON(r, &e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense payload: "+err.Error())
		return
	}
	e.Category = sanitizeInput(e.Category)

	created, err := s.ledger.CreateExpense(r.Context(), e)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create expense failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.analytics.Invalidate()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.ledger.DeleteExpense(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete expense failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "could not delete expense")
		return
	}

	s.analytics.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.ListPayments(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List payments failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list payments")
		return
	}
	if payments == nil {
		payments = []core.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var p core.Payment
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment payload: "+err.Error())
		return
	}

	created, err := s.ledger.CreatePayment(r.Context(), p)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create payment failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.analytics.Invalidate()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.ledger.DeletePayment(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "payment not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete payment failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "could not delete payment")
		return
	}

	s.analytics.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.ledger.ListProjects(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List projects failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list projects")
		return
	}
	if projects == nil {
		projects = []core.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p core.Project
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid project payload: "+err.Error())
		return
	}
	p.Name = sanitizeInput(p.Name)

	created, err := s.ledger.CreateProject(r.Context(), p)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create project failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.analytics.Invalidate()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var p core.Project
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid project payload: "+err.Error())
		return
	}
	p.ID = r.PathValue("id")
	p.Name = sanitizeInput(p.Name)

	updated, err := s.ledger.UpdateProject(r.Context(), p)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Update project failed", "error", err, "id", p.ID)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.analytics.Invalidate()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.ledger.ListClients(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List clients failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list clients")
		return
	}
	if clients == nil {
		clients = []core.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var c core.Client
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid client payload: "+err.Error())
		return
	}
	c.FirstName = sanitizeInput(c.FirstName)
	c.LastName = sanitizeInput(c.LastName)

	created, err := s.ledger.CreateClient(r.Context(), c)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create client failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.analytics.Invalidate()
	writeJSON(w, http.StatusCreated, created)
}
