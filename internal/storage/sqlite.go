package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"chantierpro/internal/analytics"
	"chantierpro/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Documents keep their queryable fields in columns and the full record as a
// JSON payload; sections nest too deeply to be worth a relational mapping.

func (r *SQLiteRepository) CreateDocument(ctx context.Context, d core.Document) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (id, type, numero, client_id, project_id, status, doc_date, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, string(d.Type), d.Numero, d.ClientID, d.ProjectID, string(d.Status), d.Date.UTC(), string(payload))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	slog.InfoContext(ctx, "Document saved",
		"id", d.ID,
		"type", d.Type,
		"numero", d.Numero,
		"status", d.Status,
		"ttc_cents", d.Totals.TTCGross.Cents)
	return nil
}

func (r *SQLiteRepository) UpdateDocument(ctx context.Context, d core.Document) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE documents
		SET type = ?, numero = ?, client_id = ?, project_id = ?, status = ?, doc_date = ?, payload = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		string(d.Type), d.Numero, d.ClientID, d.ProjectID, string(d.Status), d.Date.UTC(), string(payload), d.ID)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return requireRow(res, core.ErrUnknownDocument)
}

func (r *SQLiteRepository) GetDocument(ctx context.Context, id string) (core.Document, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Document{}, core.ErrUnknownDocument
	}
	if err != nil {
		return core.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}

	var d core.Document
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return core.Document{}, fmt.Errorf("unmarshal document %s: %w", id, err)
	}
	return d, nil
}

func (r *SQLiteRepository) DeleteDocument(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return requireRow(res, core.ErrUnknownDocument)
}

func (r *SQLiteRepository) ListDocuments(ctx context.Context) ([]core.Document, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM documents ORDER BY doc_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []core.Document
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var d core.Document
		if err := json.Unmarshal([]byte(payload), &d); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, expense_date, amount_cents, category, project_id)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Date.UTC(), e.Amount.Cents, e.Category, e.ProjectID)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	return requireRow(res, ErrNotFound)
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, expense_date, amount_cents, category, project_id
		FROM expenses ORDER BY expense_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.Date, &e.Amount.Cents, &e.Category, &e.ProjectID); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, payment_date, amount_cents)
		VALUES (?, ?, ?)`,
		p.ID, p.Date.UTC(), p.Amount.Cents)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment saved", "id", p.ID, "amount_cents", p.Amount.Cents)
	return nil
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	return requireRow(res, ErrNotFound)
}

func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, payment_date, amount_cents FROM payments ORDER BY payment_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var p core.Payment
		if err := rows.Scan(&p.ID, &p.Date, &p.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, client_id, status, budget_cents, completion)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.ClientID, string(p.Status), p.BudgetEstimate.Cents, p.Completion)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	slog.InfoContext(ctx, "Project saved", "id", p.ID, "name", p.Name, "status", p.Status)
	return nil
}

func (r *SQLiteRepository) UpdateProject(ctx context.Context, p core.Project) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, client_id = ?, status = ?, budget_cents = ?, completion = ?
		WHERE id = ?`,
		p.Name, p.ClientID, string(p.Status), p.BudgetEstimate.Cents, p.Completion, p.ID)
	if err != nil {
		return fmt.Errorf("update project %s: %w", p.ID, err)
	}
	return requireRow(res, ErrNotFound)
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (core.Project, error) {
	var p core.Project
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, client_id, status, budget_cents, completion
		FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.ClientID, &status, &p.BudgetEstimate.Cents, &p.Completion)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, ErrNotFound
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}
	p.Status = core.ProjectStatus(status)
	return p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, client_id, status, budget_cents, completion
		FROM projects ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []core.Project
	for rows.Next() {
		var p core.Project
		var status string
		if err := rows.Scan(&p.ID, &p.Name, &p.ClientID, &status, &p.BudgetEstimate.Cents, &p.Completion); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.Status = core.ProjectStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateClient(ctx context.Context, c core.Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (id, first_name, last_name) VALUES (?, ?, ?)`,
		c.ID, c.FirstName, c.LastName)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}

	slog.InfoContext(ctx, "Client saved", "id", c.ID, "name", c.DisplayName())
	return nil
}

func (r *SQLiteRepository) GetClient(ctx context.Context, id string) (core.Client, error) {
	var c core.Client
	err := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.FirstName, &c.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Client{}, ErrNotFound
	}
	if err != nil {
		return core.Client{}, fmt.Errorf("get client %s: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListClients(ctx context.Context) ([]core.Client, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, first_name, last_name FROM clients ORDER BY last_name, first_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []core.Client
	for rows.Next() {
		var c core.Client
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Snapshot loads the five collections concurrently. SQLite serializes the
// statements internally but the decode work still overlaps.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (analytics.Snapshot, error) {
	var snap analytics.Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.Documents, err = r.ListDocuments(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Expenses, err = r.ListExpenses(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Payments, err = r.ListPayments(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Projects, err = r.ListProjects(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Clients, err = r.ListClients(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return analytics.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

func (r *SQLiteRepository) EnqueueJournal(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO journal_queue (document_id) VALUES (?)
		ON CONFLICT(document_id) DO UPDATE SET exported = 0, export_error = 0, enqueued_at = CURRENT_TIMESTAMP`,
		documentID)
	if err != nil {
		return fmt.Errorf("enqueue journal entry: %w", err)
	}

	slog.InfoContext(ctx, "Document queued for journal export", "document_id", documentID)
	return nil
}

func (r *SQLiteRepository) PendingJournal(ctx context.Context, limit int) ([]PendingJournalEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT document_id, enqueued_at FROM journal_queue
		WHERE exported = 0 AND export_error = 0
		ORDER BY enqueued_at LIMIT ?`, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending journal entries: %w", err)
	}
	defer rows.Close()

	var out []PendingJournalEntry
	for rows.Next() {
		var e PendingJournalEntry
		if err := rows.Scan(&e.DocumentID, &e.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkJournalExported(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE journal_queue SET exported = 1, exported_at = ? WHERE document_id = ?`,
		time.Now().UTC(), documentID)
	if err != nil {
		return fmt.Errorf("mark journal exported: %w", err)
	}

	slog.InfoContext(ctx, "Journal entry marked as exported", "document_id", documentID)
	return nil
}

func (r *SQLiteRepository) MarkJournalError(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE journal_queue SET export_error = 1 WHERE document_id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("mark journal error: %w", err)
	}

	slog.WarnContext(ctx, "Journal entry marked with export error", "document_id", documentID)
	return nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
