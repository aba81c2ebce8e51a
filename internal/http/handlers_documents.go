package http

import (
	"errors"
	"log/slog"
	"net/http"

	"chantierpro/internal/core"
)

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docs, err := s.documents.ListDocuments(r.Context(),
		sanitizeInput(q.Get("filter")),
		sanitizeInput(q.Get("search")),
		sanitizeInput(q.Get("sort")))
	if err != nil {
		slog.ErrorContext(r.Context(), "List documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list documents")
		return
	}
	if docs == nil {
		docs = []core.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var d core.Document
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid document payload: "+err.Error())
		return
	}

	created, err := s.documents.CreateDocument(r.Context(), d)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create document failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.analytics.Invalidate()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	d, err := s.documents.GetDocument(r.Context(), r.PathValue("id"))
	if errors.Is(err, core.ErrUnknownDocument) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Get document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load document")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var d core.Document
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid document payload: "+err.Error())
		return
	}
	d.ID = r.PathValue("id")

	updated, err := s.documents.UpdateDocument(r.Context(), d)
	if errors.Is(err, core.ErrUnknownDocument) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Update document failed", "error", err, "id", d.ID)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.analytics.Invalidate()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.documents.DeleteDocument(r.Context(), id)
	if errors.Is(err, core.ErrUnknownDocument) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete document failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "could not delete document")
		return
	}

	s.analytics.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

type statusChangeRequest struct {
	Status core.DocumentStatus `json:"status"`
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid status payload: "+err.Error())
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "missing status")
		return
	}

	id := r.PathValue("id")
	d, err := s.documents.ChangeStatus(r.Context(), id, req.Status)
	if errors.Is(err, core.ErrUnknownDocument) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Change status failed", "error", err, "id", id, "status", req.Status)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.analytics.Invalidate()
	writeJSON(w, http.StatusOK, d)
}
